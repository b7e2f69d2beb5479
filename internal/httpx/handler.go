// Package httpx is the HTTP surface of the pickup-order service: staff and
// storefront endpoints, the inbound SMS webhook and the cron trigger for the
// expiration sweep.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"
	"github.com/zsmoke/pickup-service/internal/lifecycle"
	"github.com/zsmoke/pickup-service/internal/negotiation"
	"github.com/zsmoke/pickup-service/internal/store"
)

// Handler holds the constructed dependencies for all routes. Everything is
// injected so tests can run against the in-memory store and a fake SMS
// provider.
type Handler struct {
	store    store.OrderStore
	engine   *lifecycle.Engine
	protocol *negotiation.Protocol
	sweeper  *lifecycle.Sweeper
	events   eventlog.Repository // nil disables the events endpoint
	// cronSecret guards the sweeper trigger; the only auth on this service.
	cronSecret string
}

func NewHandler(
	s store.OrderStore,
	engine *lifecycle.Engine,
	protocol *negotiation.Protocol,
	sweeper *lifecycle.Sweeper,
	events eventlog.Repository,
	cronSecret string,
) *Handler {
	return &Handler{
		store:      s,
		engine:     engine,
		protocol:   protocol,
		sweeper:    sweeper,
		events:     events,
		cronSecret: cronSecret,
	}
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	items := make([]lifecycle.PlaceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, lifecycle.PlaceItem{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			Preference: domain.ReplacementPreference(it.ReplacementPreference),
		})
	}

	order, err := h.engine.Place(r.Context(), lifecycle.PlaceRequest{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Email:        req.Email,
		NotifyVia:    domain.NotifyMethod(req.NotificationMethod),
		Location:     domain.Location(req.StoreLocation),
		Notes:        req.CustomerNotes,
		Items:        items,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "order placed", "order", order.Number, "location", string(order.Location))
	writeJSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// TrackOrder handles GET /orders/track?orderNumber=&phone=|email=. The
// supplied contact must match the order before any data is returned; the
// mismatch response deliberately does not say which field was wrong.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("orderNumber")
	phone := r.URL.Query().Get("phone")
	email := r.URL.Query().Get("email")

	if number == "" || (phone == "" && email == "") {
		writeError(w, http.StatusBadRequest, "invalid_request", "orderNumber and phone or email are required")
		return
	}

	order, err := h.store.GetByNumber(r.Context(), number)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	matched := false
	if phone != "" && domain.SamePhone(order.Phone, phone) {
		matched = true
	}
	if email != "" && order.Email != "" && strings.EqualFold(order.Email, email) {
		matched = true
	}
	if !matched {
		writeError(w, http.StatusForbidden, "forbidden", "contact information does not match this order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders handles GET /orders with the staff filters, or aggregate counts
// with ?stats=true.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("stats") == "true" {
		stats, err := h.store.Stats(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	var f store.Filter
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, err := domain.ParseStatus(strings.TrimSpace(s))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	if raw := q.Get("location"); raw != "" {
		loc, ok := domain.ParseLocation(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown store location "+raw)
			return
		}
		f.Location = loc
	}
	var err error
	if f.DateFrom, err = parseTimeParam(q.Get("dateFrom"), false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "dateFrom: "+err.Error())
		return
	}
	if f.DateTo, err = parseTimeParam(q.Get("dateTo"), true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "dateTo: "+err.Error())
		return
	}
	if f.Since, err = parseTimeParam(q.Get("since"), false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "since: "+err.Error())
		return
	}
	f.Search = q.Get("search")

	orders, err := h.store.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// UpdateStatus handles POST /orders/{id}/update-status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.engine.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status, staffName(req.Staff), req.StoreNotes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// SuggestReplacement handles POST /orders/{id}/suggest-replacement — the
// async flow: record the candidate, text the customer, leave totals alone.
func (h *Handler) SuggestReplacement(w http.ResponseWriter, r *http.Request) {
	var req SuggestReplacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ReplacementProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "replacementProductId is required")
		return
	}

	order, err := h.protocol.Suggest(r.Context(), chi.URLParam(r, "id"), req.OrderItemIndex, req.ReplacementProductID, req.Note, staffName(req.Staff))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Actions handles POST /orders/{id}/actions — the staff-direct variant where
// suggest-replacement recalculates totals immediately.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	staff := staffName(req.Staff)

	var (
		order *domain.Order
		err   error
	)
	switch req.Action {
	case "accept":
		order, err = h.engine.Accept(r.Context(), id, staff, req.StoreNotes)
	case "reject":
		order, err = h.engine.Reject(r.Context(), id, staff, req.Reason)
	case "suggest-replacement":
		if req.ReplacementProductID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "replacementProductId is required")
			return
		}
		order, err = h.protocol.ApplyReplacement(r.Context(), id, req.OrderItemIndex, req.ReplacementProductID, req.Note, staff)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown action "+req.Action)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// OrderEvents handles GET /orders/{id}/events: the transition audit trail.
func (h *Handler) OrderEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusNotFound, "not_found", "event log is not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetByID(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	events, err := h.events.ListByOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			OrderID:    e.OrderID,
			From:       string(e.From),
			To:         string(e.To),
			Actor:      e.Actor,
			Note:       e.Note,
			TraceID:    e.TraceID,
			OccurredAt: e.OccurredAt.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ExpireOrders handles GET /cron/expire-orders, protected by the shared
// secret bearer token.
func (h *Handler) ExpireOrders(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if h.cronSecret == "" || token != h.cronSecret {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	n, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	slog.InfoContext(r.Context(), "sweep complete", "expired", n)
	writeJSON(w, http.StatusOK, ExpireResponse{Expired: n})
}

func staffName(s string) string {
	if s == "" {
		return "staff"
	}
	return s
}

// parseTimeParam accepts RFC3339 or a bare date. Bare dates on the "to" side
// of a range mean end of that day.
func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
