// Package store defines the persistence port for orders and its two
// implementations: Redis (primary) and in-memory (development and tests).
//
// Not-found and version conflicts are normal outcomes returned as sentinel
// errors; real I/O failures are wrapped and propagated so they can never be
// mistaken for "no such order".
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zsmoke/pickup-service/internal/domain"
)

var (
	// ErrNotFound means the order does not exist. Callers treat this as a
	// normal outcome, not a failure.
	ErrNotFound = errors.New("order not found")

	// ErrConflict means the write lost a compare-and-swap race: the order
	// changed since it was read. The caller should re-read and retry.
	ErrConflict = errors.New("order version conflict")
)

// numberPrefix is the human-readable order number prefix, e.g. ZS-001234.
const numberPrefix = "ZS"

// FormatNumber renders a sequence value as a customer-facing order number.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("%s-%06d", numberPrefix, seq)
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Statuses []domain.Status
	Location domain.Location
	DateFrom *time.Time
	DateTo   *time.Time
	// Search matches order number, customer name or phone, case-insensitive.
	Search string
	// Since keeps only orders updated after this instant (polling use).
	Since *time.Time
}

// StatGroup is one bucket of aggregate counts.
type StatGroup struct {
	Total      int                     `json:"total"`
	ByStatus   map[domain.Status]int   `json:"byStatus"`
	ByLocation map[domain.Location]int `json:"byLocation"`
}

// Stats are the aggregate counts returned by OrderStore.Stats.
type Stats struct {
	Today StatGroup `json:"today"`
	Week  StatGroup `json:"thisWeek"`
}

// OrderStore is the persistence port the lifecycle engine, negotiation
// protocol and HTTP handlers depend on.
type OrderStore interface {
	// Create assigns the id, order number, timestamps and initial version,
	// persists the order and returns it.
	Create(ctx context.Context, o *domain.Order) (*domain.Order, error)

	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByNumber looks an order up by its customer-facing number,
	// case-insensitively.
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)

	// GetByPhone returns the customer's orders, newest first, matching on
	// the canonical phone form.
	GetByPhone(ctx context.Context, phone string) ([]*domain.Order, error)

	List(ctx context.Context, f Filter) ([]*domain.Order, error)

	// Update writes the order back if its version still matches, bumping
	// the version and UpdatedAt. Returns ErrConflict on a lost race.
	Update(ctx context.Context, o *domain.Order) (*domain.Order, error)

	Stats(ctx context.Context) (*Stats, error)
}

// matches applies a Filter to an order. Shared by both backends, which filter
// in memory over the full collection.
func matches(o *domain.Order, f Filter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if o.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Location != "" && o.Location != f.Location {
		return false
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.Since != nil && !o.UpdatedAt.After(*f.Since) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		digits := domain.NormalizePhone(f.Search)
		phoneMatch := digits != "" && strings.Contains(domain.NormalizePhone(o.Phone), digits)
		if !strings.Contains(strings.ToLower(o.Number), q) &&
			!strings.Contains(strings.ToLower(o.CustomerName), q) &&
			!phoneMatch {
			return false
		}
	}
	return true
}

// buildStats folds the full order collection into today/this-week buckets.
func buildStats(orders []*domain.Order, now time.Time) *Stats {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekday := int(now.Weekday()) // Sunday == 0
	startOfWeek := startOfDay.AddDate(0, 0, -weekday)

	s := &Stats{
		Today: newStatGroup(),
		Week:  newStatGroup(),
	}
	for _, o := range orders {
		if !o.CreatedAt.Before(startOfWeek) {
			s.Week.add(o)
		}
		if !o.CreatedAt.Before(startOfDay) {
			s.Today.add(o)
		}
	}
	return s
}

func newStatGroup() StatGroup {
	return StatGroup{
		ByStatus:   make(map[domain.Status]int),
		ByLocation: make(map[domain.Location]int),
	}
}

func (g *StatGroup) add(o *domain.Order) {
	g.Total++
	g.ByStatus[o.Status]++
	g.ByLocation[o.Location]++
}
