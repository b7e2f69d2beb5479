package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
)

// Ensure the in-memory store implements the port at compile time.
var _ OrderStore = (*MemoryStore)(nil)

// MemoryStore keeps the whole collection in a map guarded by a RWMutex.
// It is the fallback backend when Redis is not configured, and the backend
// every test uses.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	seq    int64
	clock  clock.Clock
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*domain.Order),
		clock:  c,
	}
}

func (m *MemoryStore) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	now := m.clock.Now()

	cp := o.Clone()
	cp.ID = uuid.NewString()
	cp.Number = FormatNumber(m.seq)
	cp.Status = domain.StatusPending
	cp.Timeline.PlacedAt = now
	cp.CreatedAt = now
	cp.UpdatedAt = now
	cp.Version = 1

	m.orders[cp.ID] = cp
	return cp.Clone(), nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryStore) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := strings.ToUpper(strings.TrimSpace(number))
	for _, o := range m.orders {
		if strings.ToUpper(o.Number) == want {
			return o.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetByPhone(ctx context.Context, phone string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Order
	for _, o := range m.orders {
		if domain.SamePhone(o.Phone, phone) {
			out = append(out, o.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Order
	for _, o := range m.orders {
		if matches(o, f) {
			out = append(out, o.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.orders[o.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != o.Version {
		return nil, ErrConflict
	}

	cp := o.Clone()
	cp.Version++
	cp.UpdatedAt = m.clock.Now()
	m.orders[cp.ID] = cp
	return cp.Clone(), nil
}

func (m *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		all = append(all, o)
	}
	return buildStats(all, m.clock.Now()), nil
}

func sortNewestFirst(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
