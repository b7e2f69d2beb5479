// Package messaging is the SMS side of the order workflow: it renders the
// fixed set of outbound templates, dispatches them through a Provider, and
// classifies inbound replies against the approval/rejection vocabulary.
//
// Sends are fire-and-forget relative to state changes: a failed send is a
// distinct error kind the caller logs and swallows, never a reason to roll
// back the mutation that triggered it.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
)

// ErrSendFailed wraps provider failures so callers can treat them as
// non-fatal with errors.Is.
var ErrSendFailed = errors.New("sms send failed")

// Gateway renders and dispatches order notifications.
type Gateway struct {
	provider Provider
	clock    clock.Clock

	// storePhones maps each location to its staff phone for
	// store-notification messages. A location without a number is skipped.
	storePhones map[domain.Location]string
}

func NewGateway(provider Provider, c clock.Clock, storePhones map[domain.Location]string) *Gateway {
	if storePhones == nil {
		storePhones = map[domain.Location]string{}
	}
	return &Gateway{provider: provider, clock: c, storePhones: storePhones}
}

// Send renders the template for kind and dispatches it. On success it
// returns the Communication record the caller appends to the order; on
// failure it returns an error wrapping ErrSendFailed and no Communication
// is recorded.
func (g *Gateway) Send(ctx context.Context, kind Kind, o *domain.Order, p Params) (*domain.Communication, error) {
	body := renderBody(kind, o, p)
	if body == "" {
		return nil, fmt.Errorf("messaging: unknown template kind %q", kind)
	}

	to := domain.NormalizePhone(o.Phone)
	direction := domain.DirectionToCustomer
	if kind == KindStoreNotification {
		phone, ok := g.storePhones[o.Location]
		if !ok || phone == "" {
			return nil, fmt.Errorf("messaging: no staff phone configured for %s: %w", o.Location, ErrSendFailed)
		}
		to = domain.NormalizePhone(phone)
		direction = domain.DirectionToStore
	}

	messageID, err := g.provider.SendSMS(ctx, to, body)
	if err != nil {
		return nil, fmt.Errorf("messaging: %s for order %s: %w: %v", kind, o.Number, ErrSendFailed, err)
	}

	return &domain.Communication{
		ID:                uuid.NewString(),
		Direction:         direction,
		Channel:           domain.ChannelSMS,
		Body:              body,
		Status:            domain.DeliverySent,
		ProviderMessageID: messageID,
		CreatedAt:         g.clock.Now(),
	}, nil
}

// InboundCommunication builds the record for a message received on the SMS
// webhook.
func (g *Gateway) InboundCommunication(body, providerMessageID string) domain.Communication {
	return domain.Communication{
		ID:                uuid.NewString(),
		Direction:         domain.DirectionFromCustomer,
		Channel:           domain.ChannelSMS,
		Body:              body,
		Status:            domain.DeliveryDelivered,
		ProviderMessageID: providerMessageID,
		CreatedAt:         g.clock.Now(),
	}
}

// ReplyCommunication builds the record for a reply delivered in the TwiML
// webhook response (no provider message id exists for those).
func (g *Gateway) ReplyCommunication(body string) domain.Communication {
	return domain.Communication{
		ID:        uuid.NewString(),
		Direction: domain.DirectionToCustomer,
		Channel:   domain.ChannelSMS,
		Body:      body,
		Status:    domain.DeliverySent,
		CreatedAt: g.clock.Now(),
	}
}
