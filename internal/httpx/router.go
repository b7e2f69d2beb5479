package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/", handler.ListOrders)
		r.Get("/track", handler.TrackOrder)
		r.Get("/{id}", handler.GetOrder)
		r.Get("/{id}/events", handler.OrderEvents)
		r.Post("/{id}/update-status", handler.UpdateStatus)
		r.Post("/{id}/suggest-replacement", handler.SuggestReplacement)
		r.Post("/{id}/actions", handler.Actions)
	})

	r.Post("/webhooks/sms", handler.SMSWebhook)
	r.Get("/cron/expire-orders", handler.ExpireOrders)

	return r
}
