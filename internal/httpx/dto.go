package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zsmoke/pickup-service/internal/catalog"
	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/store"
)

type CreateOrderRequest struct {
	CustomerName       string               `json:"customerName"`
	Phone              string               `json:"phone"`
	Email              string               `json:"email,omitempty"`
	NotificationMethod string               `json:"notificationMethod,omitempty"`
	StoreLocation      string               `json:"storeLocation"`
	CustomerNotes      string               `json:"customerNotes,omitempty"`
	Items              []CreateOrderItemDTO `json:"items"`
}

type CreateOrderItemDTO struct {
	ProductID             string `json:"productId"`
	Quantity              int    `json:"quantity"`
	ReplacementPreference string `json:"replacementPreference,omitempty"`
}

type UpdateStatusRequest struct {
	Status     string `json:"status"`
	StoreNotes string `json:"storeNotes,omitempty"`
	Staff      string `json:"staff,omitempty"`
}

type SuggestReplacementRequest struct {
	OrderItemIndex       int    `json:"orderItemIndex"`
	ReplacementProductID string `json:"replacementProductId"`
	Note                 string `json:"note,omitempty"`
	Staff                string `json:"staff,omitempty"`
}

// ActionRequest is the staff-direct action envelope. suggest-replacement
// here applies the swap and recalculates immediately, unlike the async
// suggest-replacement endpoint.
type ActionRequest struct {
	Action               string `json:"action"`
	OrderItemIndex       int    `json:"orderItemIndex,omitempty"`
	ReplacementProductID string `json:"replacementProductId,omitempty"`
	Note                 string `json:"note,omitempty"`
	Reason               string `json:"reason,omitempty"`
	StoreNotes           string `json:"storeNotes,omitempty"`
	Staff                string `json:"staff,omitempty"`
}

type ExpireResponse struct {
	Expired int `json:"expired"`
}

type EventResponse struct {
	OrderID    string `json:"orderId"`
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
	Actor      string `json:"actor,omitempty"`
	Note       string `json:"note,omitempty"`
	TraceID    string `json:"traceId,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// writeDomainError maps the error taxonomy to HTTP statuses: validation 400,
// not-found 404, lost-update conflicts 409, anything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_request", vErr.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "invalid_transition", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", "")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "the order was modified concurrently, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
