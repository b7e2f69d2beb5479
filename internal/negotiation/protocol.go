// Package negotiation implements the replacement sub-protocol: staff suggest
// a substitute for an unavailable line item, the customer approves or
// rejects it by SMS, and order totals are recalculated to match.
//
// Two suggestion paths exist on purpose. Suggest is the async customer-facing
// flow: it records the candidate and sends the SMS but leaves totals alone
// until the customer approves. ApplyReplacement is the staff-direct variant
// used from the admin UI: the swap and the recalculation happen immediately,
// no SMS round-trip.
package negotiation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zsmoke/pickup-service/internal/catalog"
	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"
	"github.com/zsmoke/pickup-service/internal/messaging"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
	"github.com/zsmoke/pickup-service/internal/store"
)

// Protocol coordinates the suggest -> SMS round-trip -> approve/reject
// sequence.
type Protocol struct {
	store   store.OrderStore
	catalog catalog.Catalog
	gateway *messaging.Gateway
	events  eventlog.Repository // nil-safe
	clock   clock.Clock
}

func NewProtocol(s store.OrderStore, c catalog.Catalog, g *messaging.Gateway, ev eventlog.Repository, clk clock.Clock) *Protocol {
	return &Protocol{store: s, catalog: c, gateway: g, events: ev, clock: clk}
}

// Suggest records a replacement candidate on the addressed item and texts
// the customer. Totals are untouched until the customer approves.
func (p *Protocol) Suggest(ctx context.Context, orderID string, itemIndex int, productID, note, staff string) (*domain.Order, error) {
	o, item, err := p.loadItem(ctx, orderID, itemIndex)
	if err != nil {
		return nil, err
	}

	product, err := p.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolve replacement product %s: %w", productID, err)
	}

	now := p.clock.Now()
	item.Replacement = &domain.Replacement{
		ProductID:   product.ID,
		Name:        product.Name,
		UnitPrice:   product.Price,
		Note:        note,
		SuggestedBy: staff,
		SuggestedAt: now,
	}

	updated, err := p.store.Update(ctx, o)
	if err != nil {
		return nil, err
	}

	comm, err := p.gateway.Send(ctx, messaging.KindReplacementSuggestion, updated, messaging.Params{
		ItemName:         item.Name,
		ReplacementName:  product.Name,
		ReplacementPrice: product.Price,
		ReplacementNote:  note,
	})
	if err != nil {
		// The suggestion stands even when the text did not go out.
		slog.WarnContext(ctx, "replacement suggestion sms failed", "order", updated.Number, "error", err)
		return updated, nil
	}

	updated.AddCommunication(*comm)
	if recorded, err := p.store.Update(ctx, updated); err == nil {
		updated = recorded
	} else {
		slog.WarnContext(ctx, "could not record suggestion communication", "order", updated.Number, "error", err)
	}
	return updated, nil
}

// ApplyReplacement is the staff-direct variant: swap the item to the
// candidate product and recalculate totals in one call, no customer
// approval.
func (p *Protocol) ApplyReplacement(ctx context.Context, orderID string, itemIndex int, productID, note, staff string) (*domain.Order, error) {
	o, item, err := p.loadItem(ctx, orderID, itemIndex)
	if err != nil {
		return nil, err
	}

	product, err := p.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolve replacement product %s: %w", productID, err)
	}

	now := p.clock.Now()
	item.Replacement = &domain.Replacement{
		ProductID:   product.ID,
		Name:        product.Name,
		UnitPrice:   product.Price,
		Note:        note,
		SuggestedBy: staff,
		SuggestedAt: now,
		WasReplaced: true,
		ApprovedAt:  &now,
	}
	swapToReplacement(item)
	o.RecalculateTotals()

	return p.store.Update(ctx, o)
}

// HandleInbound processes a customer SMS from the provider webhook and
// returns the reply text to put in the TwiML response.
func (p *Protocol) HandleInbound(ctx context.Context, from, body, providerMessageID string) (string, error) {
	orders, err := p.store.GetByPhone(ctx, from)
	if err != nil {
		return messaging.ReplyFallback, err
	}

	// Most recent order still awaiting fulfilment; later statuses fall
	// through to the no-pending-order reply.
	var o *domain.Order
	for _, cand := range orders {
		if cand.Status == domain.StatusPending || cand.Status == domain.StatusConfirmed {
			o = cand
			break
		}
	}
	if o == nil {
		return messaging.ReplyNoPendingOrder, nil
	}

	inbound := p.gateway.InboundCommunication(body, providerMessageID)

	idx := o.PendingReplacementIndex()
	if idx < 0 {
		return p.acknowledge(ctx, o, inbound, body)
	}

	item := &o.Items[idx]
	switch messaging.Classify(body) {
	case messaging.ReplyApproval:
		now := p.clock.Now()
		item.Replacement.WasReplaced = true
		item.Replacement.ApprovedAt = &now
		swapToReplacement(item)
		o.RecalculateTotals()

		reply := messaging.ReplySwapConfirmed(item.Name, o.Total)
		o.AddCommunication(inbound)
		o.AddCommunication(p.gateway.ReplyCommunication(reply))
		if _, err := p.store.Update(ctx, o); err != nil {
			return messaging.ReplyFallback, err
		}
		return reply, nil

	case messaging.ReplyRejection:
		removedName := item.Name
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		o.RecalculateTotals()
		o.AddCommunication(inbound)

		reply := messaging.ReplyItemRemoved(removedName, o.Total)
		if len(o.Items) == 0 {
			// Nothing left to pick up.
			now := p.clock.Now()
			from := o.Status
			o.Status = domain.StatusCancelled
			o.Timeline.CancelledAt = &now
			reply = messaging.ReplyOrderCancelled
			p.appendEvent(ctx, eventlog.NewEvent(ctx, o.ID, from, domain.StatusCancelled, eventlog.ActorCustomerSMS, "all items rejected", now))
		}
		o.AddCommunication(p.gateway.ReplyCommunication(reply))
		if _, err := p.store.Update(ctx, o); err != nil {
			return messaging.ReplyFallback, err
		}
		return reply, nil
	}

	return p.acknowledge(ctx, o, inbound, body)
}

// acknowledge records an inbound message that resolves nothing and replies
// generically. No order state beyond the log changes.
func (p *Protocol) acknowledge(ctx context.Context, o *domain.Order, inbound domain.Communication, body string) (string, error) {
	o.AddCommunication(inbound)
	o.AppendStoreNote("Customer SMS: " + body)
	o.AddCommunication(p.gateway.ReplyCommunication(messaging.ReplyGenericAck))
	if _, err := p.store.Update(ctx, o); err != nil {
		return messaging.ReplyFallback, err
	}
	return messaging.ReplyGenericAck, nil
}

func (p *Protocol) loadItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, *domain.OrderItem, error) {
	o, err := p.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.Status.Terminal() {
		return nil, nil, domain.Invalid("order %s is %s and cannot be modified", o.Number, o.Status)
	}
	if itemIndex < 0 || itemIndex >= len(o.Items) {
		return nil, nil, domain.Invalid("item index %d out of range (order has %d items)", itemIndex, len(o.Items))
	}
	return o, &o.Items[itemIndex], nil
}

func (p *Protocol) appendEvent(ctx context.Context, ev *eventlog.Event) {
	if p.events == nil {
		return
	}
	if err := p.events.Append(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "event log append failed", "order_id", ev.OrderID, "error", err)
	}
}

// swapToReplacement makes the approved candidate the line item's product.
// Quantity and preference carry over.
func swapToReplacement(item *domain.OrderItem) {
	r := item.Replacement
	item.ProductID = r.ProductID
	item.Name = r.Name
	item.UnitPrice = r.UnitPrice
}
