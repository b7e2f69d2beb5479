package domain

import "fmt"

// Status is the lifecycle state of a pickup order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusReady     Status = "ready"
	StatusPickedUp  Status = "picked-up"
	StatusNoShow    Status = "no-show"
	StatusCancelled Status = "cancelled"
)

// transitions is the single source of truth for which status changes are
// legal. Terminal states have no entry: once an order is picked up, a
// no-show, or cancelled, nothing moves it again.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusConfirmed, StatusReady, StatusCancelled},
	StatusReady:     {StatusPickedUp, StatusNoShow, StatusCancelled},
}

// ParseStatus validates a raw status string from an API request.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusReady, StatusPickedUp, StatusNoShow, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusPickedUp, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
