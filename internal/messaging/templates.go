package messaging

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zsmoke/pickup-service/internal/domain"
)

// Kind selects which message template Send renders.
type Kind string

const (
	KindOrderConfirmation     Kind = "order-confirmation"
	KindStoreNotification     Kind = "store-notification"
	KindReadyForPickup        Kind = "ready-for-pickup"
	KindReplacementSuggestion Kind = "replacement-suggestion"
	KindCancellation          Kind = "cancellation"
	KindNoShow                Kind = "no-show"
)

// Params carries the per-message values templates interpolate beyond the
// order itself.
type Params struct {
	Deadline         *time.Time
	Reason           string
	ItemName         string
	ReplacementName  string
	ReplacementPrice decimal.Decimal
	ReplacementNote  string
}

// Webhook reply bodies. These go back in the TwiML response rather than
// through the provider send API.
const (
	ReplyNoPendingOrder = "We couldn't find a pending order for this number. Call the shop and we'll sort it out."
	ReplyGenericAck     = "Thanks for your message! We'll review it and get back to you shortly."
	ReplyFallback       = "Sorry, something went wrong on our end. Please call the shop."
)

// ReplySwapConfirmed renders the webhook reply after an approved replacement.
func ReplySwapConfirmed(name string, total decimal.Decimal) string {
	return fmt.Sprintf("Got it! We've swapped in %s. Your new total is $%s.", name, total.StringFixed(2))
}

// ReplyItemRemoved renders the webhook reply after a rejected replacement.
func ReplyItemRemoved(name string, total decimal.Decimal) string {
	return fmt.Sprintf("No problem, we've removed %s. Your new total is $%s.", name, total.StringFixed(2))
}

// ReplyOrderCancelled renders the webhook reply when a rejection empties the
// order.
const ReplyOrderCancelled = "That was the last item, so we've cancelled the order. Nothing is owed. Come see us again soon!"

func renderBody(kind Kind, o *domain.Order, p Params) string {
	switch kind {
	case KindOrderConfirmation:
		return fmt.Sprintf("Thanks %s! We received order %s (total $%s). We'll text you when it's confirmed and ready.",
			o.CustomerName, o.Number, o.Total.StringFixed(2))

	case KindStoreNotification:
		return fmt.Sprintf("New pickup order %s at %s: %d item(s), $%s, for %s (%s).",
			o.Number, o.Location, len(o.Items), o.Total.StringFixed(2), o.CustomerName, o.Phone)

	case KindReadyForPickup:
		deadline := ""
		if p.Deadline != nil {
			deadline = fmt.Sprintf(" Please pick up by %s or the order will be released.",
				p.Deadline.Format("3:04 PM"))
		}
		return fmt.Sprintf("Order %s is ready for pickup at our %s location!%s", o.Number, o.Location, deadline)

	case KindReplacementSuggestion:
		note := ""
		if p.ReplacementNote != "" {
			note = " (" + p.ReplacementNote + ")"
		}
		return fmt.Sprintf("Order %s: %s is unavailable. We can substitute %s at $%s%s. Reply YES to accept or NO to remove the item.",
			o.Number, p.ItemName, p.ReplacementName, p.ReplacementPrice.StringFixed(2), note)

	case KindCancellation:
		reason := ""
		if p.Reason != "" {
			reason = " Reason: " + p.Reason + "."
		}
		return fmt.Sprintf("Order %s has been cancelled.%s Call the shop with any questions.", o.Number, reason)

	case KindNoShow:
		return fmt.Sprintf("Order %s was not picked up within the pickup window and has been released. Call us and we'll make it right.", o.Number)
	}
	return ""
}
