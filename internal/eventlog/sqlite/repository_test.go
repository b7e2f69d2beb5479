package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAppendAndListByOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	events := []*eventlog.Event{
		{OrderID: "o1", From: "", To: domain.StatusPending, Actor: "customer-web", OccurredAt: base},
		{OrderID: "o1", From: domain.StatusPending, To: domain.StatusConfirmed, Actor: "sam", Note: "all in stock", OccurredAt: base.Add(time.Minute)},
		{OrderID: "o2", From: "", To: domain.StatusPending, Actor: "customer-web", OccurredAt: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.ListByOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].To != domain.StatusPending || got[1].To != domain.StatusConfirmed {
		t.Errorf("events out of order: %+v", got)
	}
	if got[0].From != "" {
		t.Errorf("creation event From = %q, want empty", got[0].From)
	}
	if got[1].Actor != "sam" || got[1].Note != "all in stock" {
		t.Errorf("event = %+v", got[1])
	}
	if !got[1].OccurredAt.Equal(base.Add(time.Minute)) {
		t.Errorf("occurredAt = %v", got[1].OccurredAt)
	}
}

func TestListByOrderEmpty(t *testing.T) {
	repo := openTestRepo(t)

	got, err := repo.ListByOrder(context.Background(), "nope")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d events, want none", len(got))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")

	repo, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Append(context.Background(), &eventlog.Event{
		OrderID: "o1", To: domain.StatusPending, OccurredAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	repo.Close()

	// Reopening the same file applies the schema without error and keeps rows.
	repo, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	got, err := repo.ListByOrder(context.Background(), "o1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events after reopen, want 1", len(got))
	}
}
