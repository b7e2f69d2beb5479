package catalog

import (
	"context"
	"sync"
)

var _ Catalog = (*MemoryCatalog)(nil)

// MemoryCatalog serves products from a map. For tests and Redis-less dev.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryCatalog(products ...Product) *MemoryCatalog {
	m := &MemoryCatalog{products: make(map[string]Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *MemoryCatalog) Put(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *MemoryCatalog) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}
