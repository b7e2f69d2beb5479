package messaging

import (
	"context"
	"errors"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/lifecycle"
)

var _ lifecycle.Notifier = (*Notifier)(nil)

// Notifier adapts the Gateway to the lifecycle engine's event seam.
type Notifier struct {
	gateway *Gateway
}

func NewNotifier(g *Gateway) *Notifier {
	return &Notifier{gateway: g}
}

type plannedSend struct {
	kind   Kind
	params Params
}

// Notify maps a lifecycle event to the templates it implies and sends them.
// Returned Communications cover only messages that actually went out;
// partial failures are joined into err.
func (n *Notifier) Notify(ctx context.Context, ev lifecycle.Event) ([]domain.Communication, error) {
	var sends []plannedSend
	switch ev.Kind {
	case lifecycle.EventOrderPlaced:
		sends = []plannedSend{
			{kind: KindOrderConfirmation},
			{kind: KindStoreNotification},
		}
	case lifecycle.EventOrderReady:
		sends = []plannedSend{{kind: KindReadyForPickup, params: Params{Deadline: ev.Deadline}}}
	case lifecycle.EventOrderCancel:
		sends = []plannedSend{{kind: KindCancellation, params: Params{Reason: ev.Reason}}}
	case lifecycle.EventOrderExpired:
		sends = []plannedSend{{kind: KindNoShow}}
	default:
		return nil, nil
	}

	var comms []domain.Communication
	var errs []error
	for _, s := range sends {
		comm, err := n.gateway.Send(ctx, s.kind, ev.Order, s.params)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		comms = append(comms, *comm)
	}
	return comms, errors.Join(errs...)
}
