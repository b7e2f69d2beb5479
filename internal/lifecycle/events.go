package lifecycle

import (
	"context"
	"time"

	"github.com/zsmoke/pickup-service/internal/domain"
)

// EventKind identifies a lifecycle event worth notifying someone about.
type EventKind string

const (
	EventOrderPlaced  EventKind = "order.placed"
	EventOrderReady   EventKind = "order.ready"
	EventOrderExpired EventKind = "order.no-show"
	EventOrderCancel  EventKind = "order.cancelled"
)

// Event is emitted by the engine after a state change has been persisted.
// Keeping notifications behind this seam means the state machine is testable
// without a messaging dependency.
type Event struct {
	Kind     EventKind
	Order    *domain.Order
	Deadline *time.Time
	Reason   string
}

// Notifier consumes lifecycle events and returns the Communication records
// for whatever it actually sent. Partial success is fine: returned records
// are appended to the order even when err is non-nil.
type Notifier interface {
	Notify(ctx context.Context, ev Event) ([]domain.Communication, error)
}
