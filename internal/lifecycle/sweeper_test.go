package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/zsmoke/pickup-service/internal/domain"
)

func TestSweep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Two orders go through to ready, one stays confirmed.
	makeReady := func() string {
		req := placeRequest()
		o, err := f.engine.Place(ctx, req)
		if err != nil {
			t.Fatalf("place: %v", err)
		}
		if _, err := f.engine.Accept(ctx, o.ID, "sam", ""); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := f.engine.MarkReady(ctx, o.ID, "sam", ""); err != nil {
			t.Fatalf("mark ready: %v", err)
		}
		return o.ID
	}
	readyA := makeReady()
	readyB := makeReady()

	confirmed, _ := f.engine.Place(ctx, placeRequest())
	f.engine.Accept(ctx, confirmed.ID, "sam", "")

	sweeper := NewSweeper(f.store, f.engine)

	// Within the pickup window nothing expires.
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("expired %d orders, want 0 before the deadline", n)
	}

	*f.now = f.now.Add(61 * time.Minute)

	n, err = sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expired %d orders, want 2", n)
	}
	for _, id := range []string{readyA, readyB} {
		o, _ := f.store.GetByID(ctx, id)
		if o.Status != domain.StatusNoShow {
			t.Errorf("order %s status = %s, want no-show", o.Number, o.Status)
		}
	}
	got, _ := f.store.GetByID(ctx, confirmed.ID)
	if got.Status != domain.StatusConfirmed {
		t.Errorf("confirmed order status = %s, sweep must not touch it", got.Status)
	}

	// A second sweep finds nothing left to expire.
	n, err = sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep expired %d orders, want 0", n)
	}
}
