// Package eventlog is a durable, append-only audit trail of order status
// transitions.
//
// Every lifecycle transition writes one row here. It serves two purposes:
//
//  1. Observability: the events endpoint and ad-hoc queries can show exactly
//     how an order moved through its lifecycle and correlate each step with
//     a distributed trace via the trace_id field.
//
//  2. Audit: terminal orders are retained forever, and the log explains who
//     (staff, customer SMS, the sweeper) drove each change.
package eventlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zsmoke/pickup-service/internal/domain"
)

// Well-known actors for transitions not driven by a named staff member.
const (
	ActorCustomerSMS = "customer-sms"
	ActorSweeper     = "sweeper"
	ActorSystem      = "system"
)

// Event is a single row in the order_events table: one status transition at
// one point in time.
type Event struct {
	// OrderID joins the event with business data.
	OrderID string

	// From is empty for the creation event (-> pending).
	From domain.Status
	To   domain.Status

	// Actor is the staff username, or one of the well-known actor constants.
	Actor string

	// Note carries the human context, e.g. a rejection reason.
	Note string

	// TraceID / SpanID are the W3C identifiers of the OpenTelemetry span
	// active when the transition happened, empty when tracing is off.
	TraceID string
	SpanID  string

	OccurredAt time.Time
}

// Repository is the port for persisting events. Appends only; rows are never
// updated or deleted.
type Repository interface {
	Append(ctx context.Context, e *Event) error
	ListByOrder(ctx context.Context, orderID string) ([]*Event, error)
}

// NewEvent builds an Event with trace identifiers extracted from the active
// span in ctx, if any.
func NewEvent(ctx context.Context, orderID string, from, to domain.Status, actor, note string, at time.Time) *Event {
	e := &Event{
		OrderID:    orderID,
		From:       from,
		To:         to,
		Actor:      actor,
		Note:       note,
		OccurredAt: at,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}
