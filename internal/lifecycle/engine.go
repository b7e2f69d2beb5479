// Package lifecycle owns the order status state machine: placement, the
// staff-driven transitions, and the expiration sweep.
//
// Every transition follows the same shape: load, validate against the
// transition table, persist the status and timeline change, append an audit
// event, then notify best-effort. A failed notification is logged and
// swallowed — it never rolls back the state change — and a Communication is
// recorded only when a message actually went out.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsmoke/pickup-service/internal/catalog"
	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
	"github.com/zsmoke/pickup-service/internal/store"
)

// ActorCustomerWeb marks transitions driven by the customer through the
// storefront (placement).
const ActorCustomerWeb = "customer-web"

// Engine drives the order state machine.
type Engine struct {
	store    store.OrderStore
	catalog  catalog.Catalog
	events   eventlog.Repository // nil-safe: auditing skipped if nil
	notifier Notifier            // nil-safe: notifications skipped if nil
	clock    clock.Clock
}

func NewEngine(s store.OrderStore, c catalog.Catalog, ev eventlog.Repository, n Notifier, clk clock.Clock) *Engine {
	return &Engine{store: s, catalog: c, events: ev, notifier: n, clock: clk}
}

// PlaceItem is one requested line in a new order.
type PlaceItem struct {
	ProductID  string
	Quantity   int
	Preference domain.ReplacementPreference
}

// PlaceRequest is the input for creating an order.
type PlaceRequest struct {
	CustomerName string
	Phone        string
	Email        string
	NotifyVia    domain.NotifyMethod
	Location     domain.Location
	Notes        string
	Items        []PlaceItem
}

// Place validates the request, denormalizes product data into line items,
// computes totals and persists the new pending order. The confirmation and
// store notifications are sent best-effort afterwards.
func (e *Engine) Place(ctx context.Context, req PlaceRequest) (*domain.Order, error) {
	if req.CustomerName == "" {
		return nil, domain.Invalid("customer name is required")
	}
	if !domain.ValidPhone(req.Phone) {
		return nil, domain.Invalid("phone number %q is not valid", req.Phone)
	}
	if _, ok := domain.ParseLocation(string(req.Location)); !ok {
		return nil, domain.Invalid("unknown store location %q", req.Location)
	}
	if len(req.Items) == 0 {
		return nil, domain.Invalid("order must contain at least one item")
	}
	if req.NotifyVia == "" {
		req.NotifyVia = domain.NotifyBySMS
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, domain.Invalid("item %d: quantity must be positive", i)
		}
		pref := it.Preference
		if pref == "" {
			pref = domain.PreferSubstitute
		}
		product, err := e.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", it.ProductID, err)
		}
		items = append(items, domain.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			ImageURL:   product.ImageURL,
			Category:   product.Category,
			UnitPrice:  product.Price,
			Quantity:   it.Quantity,
			Preference: pref,
		})
	}

	o := &domain.Order{
		CustomerName:  req.CustomerName,
		Phone:         domain.NormalizePhone(req.Phone),
		Email:         req.Email,
		NotifyVia:     req.NotifyVia,
		Items:         items,
		Location:      req.Location,
		CustomerNotes: req.Notes,
	}
	o.RecalculateTotals()

	created, err := e.store.Create(ctx, o)
	if err != nil {
		return nil, err
	}

	e.appendEvent(ctx, eventlog.NewEvent(ctx, created.ID, "", domain.StatusPending, ActorCustomerWeb, "", created.Timeline.PlacedAt))
	created = e.notify(ctx, created, Event{Kind: EventOrderPlaced, Order: created})
	return created, nil
}

// Accept confirms all items are available (pending/confirmed -> confirmed).
func (e *Engine) Accept(ctx context.Context, id, staff, note string) (*domain.Order, error) {
	return e.transition(ctx, id, domain.StatusConfirmed, staff, note, func(o *domain.Order, now time.Time) {
		if o.Timeline.ConfirmedAt == nil {
			o.Timeline.ConfirmedAt = &now
		}
	})
}

// MarkReady moves the order to ready, derives the pickup deadline and sends
// the ready-for-pickup notification.
func (e *Engine) MarkReady(ctx context.Context, id, staff, note string) (*domain.Order, error) {
	var deadline time.Time
	o, err := e.transition(ctx, id, domain.StatusReady, staff, note, func(o *domain.Order, now time.Time) {
		o.Timeline.ReadyAt = &now
		deadline = now.Add(domain.PickupWindow)
		o.Timeline.PickupDeadline = &deadline
	})
	if err != nil {
		return nil, err
	}
	return e.notify(ctx, o, Event{Kind: EventOrderReady, Order: o, Deadline: &deadline}), nil
}

// Reject declines the order (e.g. nothing is available), recording the
// reason in store notes and notifying the customer.
func (e *Engine) Reject(ctx context.Context, id, staff, reason string) (*domain.Order, error) {
	note := "Rejected"
	if reason != "" {
		note = "Rejected: " + reason
	}
	o, err := e.transition(ctx, id, domain.StatusCancelled, staff, note, func(o *domain.Order, now time.Time) {
		o.Timeline.CancelledAt = &now
	})
	if err != nil {
		return nil, err
	}
	return e.notify(ctx, o, Event{Kind: EventOrderCancel, Order: o, Reason: reason}), nil
}

// Complete marks a ready order picked up.
func (e *Engine) Complete(ctx context.Context, id, staff, note string) (*domain.Order, error) {
	return e.transition(ctx, id, domain.StatusPickedUp, staff, note, func(o *domain.Order, now time.Time) {
		o.Timeline.CompletedAt = &now
	})
}

// Cancel moves any non-terminal order to cancelled and notifies the customer.
func (e *Engine) Cancel(ctx context.Context, id, actor, reason string) (*domain.Order, error) {
	o, err := e.transition(ctx, id, domain.StatusCancelled, actor, reason, func(o *domain.Order, now time.Time) {
		o.Timeline.CancelledAt = &now
	})
	if err != nil {
		return nil, err
	}
	return e.notify(ctx, o, Event{Kind: EventOrderCancel, Order: o, Reason: reason}), nil
}

// Expire flips a ready order past its pickup deadline to no-show. Orders
// that are not ready, or not yet past the deadline, are a no-op (expired ==
// false), not an error, so the sweeper is idempotent.
func (e *Engine) Expire(ctx context.Context, id, actor string) (*domain.Order, bool, error) {
	o, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if o.Status != domain.StatusReady {
		return o, false, nil
	}
	if o.Timeline.PickupDeadline == nil || !e.clock.Now().After(*o.Timeline.PickupDeadline) {
		return o, false, nil
	}

	updated, err := e.transition(ctx, id, domain.StatusNoShow, actor, "pickup deadline passed", func(o *domain.Order, now time.Time) {
		o.Timeline.CompletedAt = &now
	})
	if err != nil {
		return nil, false, err
	}
	updated = e.notify(ctx, updated, Event{Kind: EventOrderExpired, Order: updated})
	return updated, true, nil
}

// UpdateStatus dispatches a raw target status from the staff API to the
// matching transition operation.
func (e *Engine) UpdateStatus(ctx context.Context, id string, to domain.Status, staff, storeNotes string) (*domain.Order, error) {
	switch to {
	case domain.StatusConfirmed:
		return e.Accept(ctx, id, staff, storeNotes)
	case domain.StatusReady:
		return e.MarkReady(ctx, id, staff, storeNotes)
	case domain.StatusPickedUp:
		return e.Complete(ctx, id, staff, storeNotes)
	case domain.StatusCancelled:
		return e.Cancel(ctx, id, staff, storeNotes)
	case domain.StatusNoShow:
		o, expired, err := e.Expire(ctx, id, staff)
		if err != nil {
			return nil, err
		}
		if !expired {
			return nil, domain.Invalid("order %s is not past its pickup deadline", o.Number)
		}
		return o, nil
	}
	return nil, domain.Invalid("cannot set status to %q", to)
}

// transition is the shared load / validate / mutate / persist / audit path.
func (e *Engine) transition(ctx context.Context, id string, to domain.Status, actor, note string, apply func(*domain.Order, time.Time)) (*domain.Order, error) {
	o, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, to)
	}

	now := e.clock.Now()
	from := o.Status
	o.Status = to
	if apply != nil {
		apply(o, now)
	}
	if note != "" {
		o.AppendStoreNote(note)
	}

	updated, err := e.store.Update(ctx, o)
	if err != nil {
		return nil, err
	}

	e.appendEvent(ctx, eventlog.NewEvent(ctx, o.ID, from, to, actor, note, now))
	return updated, nil
}

// notify sends the event to the notifier and records whatever was actually
// sent. Failures here never fail the transition that triggered them.
func (e *Engine) notify(ctx context.Context, o *domain.Order, ev Event) *domain.Order {
	if e.notifier == nil {
		return o
	}
	ev.Order = o
	comms, err := e.notifier.Notify(ctx, ev)
	if err != nil {
		slog.WarnContext(ctx, "notification failed", "order", o.Number, "event", string(ev.Kind), "error", err)
	}
	if len(comms) == 0 {
		return o
	}
	for _, c := range comms {
		o.AddCommunication(c)
	}
	updated, err := e.store.Update(ctx, o)
	if err != nil {
		slog.WarnContext(ctx, "could not record communications", "order", o.Number, "error", err)
		return o
	}
	return updated
}

func (e *Engine) appendEvent(ctx context.Context, ev *eventlog.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "event log append failed", "order_id", ev.OrderID, "error", err)
	}
}
