package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"
	"github.com/zsmoke/pickup-service/internal/store"
)

// Sweeper expires ready orders whose pickup deadline has passed. It is
// invoked on a schedule (the cron endpoint, or Run's ticker) and is safe to
// run repeatedly: an order already expired or moved on is skipped, not an
// error.
type Sweeper struct {
	store  store.OrderStore
	engine *Engine
}

func NewSweeper(s store.OrderStore, e *Engine) *Sweeper {
	return &Sweeper{store: s, engine: e}
}

// Sweep expires every overdue ready order and returns how many it expired.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ready, err := s.store.List(ctx, store.Filter{Statuses: []domain.Status{domain.StatusReady}})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range ready {
		_, didExpire, err := s.engine.Expire(ctx, o.ID, eventlog.ActorSweeper)
		if err != nil {
			// One bad order should not stop the sweep.
			slog.ErrorContext(ctx, "expire failed", "order", o.Number, "error", err)
			continue
		}
		if didExpire {
			expired++
		}
	}
	return expired, nil
}

// Run sweeps on a fixed interval until ctx is cancelled. For deployments
// without an external cron trigger.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "expired overdue orders", "count", n)
			}
		}
	}
}
