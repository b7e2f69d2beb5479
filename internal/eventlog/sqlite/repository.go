// Package sqlite provides a SQLite-backed implementation of
// eventlog.Repository.
//
// WAL mode is enabled on Open so readers never block the writer — the HTTP
// events endpoint reads while lifecycle transitions append.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/eventlog"

	// Pure-Go SQLite driver: no CGO, so the binary builds the same way in
	// Docker (Alpine) as on a dev machine.
	_ "modernc.org/sqlite"
)

// schema is the DDL applied once on Open. The table is append-only: each row
// is an immutable transition event.
const schema = `
CREATE TABLE IF NOT EXISTS order_events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Business identifier, multiple rows per order (one per transition).
    order_id     TEXT NOT NULL,

    -- Status before the transition; empty for the creation event.
    from_status  TEXT NOT NULL DEFAULT '',

    -- Status after the transition.
    to_status    TEXT NOT NULL,

    -- Staff username, "customer-sms", "sweeper" or "system".
    actor        TEXT NOT NULL DEFAULT '',

    -- Human context, e.g. the rejection reason.
    note         TEXT NOT NULL DEFAULT '',

    -- W3C trace/span ids of the active OTel span, empty when tracing is off.
    trace_id     TEXT NOT NULL DEFAULT '',
    span_id      TEXT NOT NULL DEFAULT '',

    -- RFC3339 TEXT, the SQLite idiom for timestamps.
    occurred_at  TEXT NOT NULL
);

-- The common query: "all events for order X, in order".
CREATE INDEX IF NOT EXISTS idx_order_events_order_id ON order_events(order_id, occurred_at);

-- The observability query: "which order does trace Y belong to".
CREATE INDEX IF NOT EXISTS idx_order_events_trace_id ON order_events(trace_id);
`

var _ eventlog.Repository = (*Repository)(nil)

// Repository is the SQLite implementation of eventlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts one transition event. Safe to call concurrently.
func (r *Repository) Append(ctx context.Context, e *eventlog.Event) error {
	const q = `
		INSERT INTO order_events
			(order_id, from_status, to_status, actor, note, trace_id, span_id, occurred_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.OrderID,
		string(e.From),
		string(e.To),
		e.Actor,
		e.Note,
		e.TraceID,
		e.SpanID,
		e.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append event for %q: %w", e.OrderID, err)
	}
	return nil
}

// ListByOrder returns all events for one order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]*eventlog.Event, error) {
	const q = `
		SELECT order_id, from_status, to_status, actor, note, trace_id, span_id, occurred_at
		FROM   order_events
		WHERE  order_id = ?
		ORDER  BY occurred_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list events for %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []*eventlog.Event
	for rows.Next() {
		var e eventlog.Event
		var from, to, occurredAt string
		if err := rows.Scan(&e.OrderID, &from, &to, &e.Actor, &e.Note, &e.TraceID, &e.SpanID, &occurredAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan event for %q: %w", orderID, err)
		}
		e.From = domain.Status(from)
		e.To = domain.Status(to)
		e.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse time %q: %w", occurredAt, err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list events for %q: %w", orderID, err)
	}
	return out, nil
}
