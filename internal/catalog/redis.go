package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Catalog = (*RedisCatalog)(nil)

// keyProductPrefix matches where the storefront writes product documents.
const keyProductPrefix = "pickup:products:"

// RedisCatalog reads product documents the storefront maintains in Redis.
type RedisCatalog struct {
	client *redis.Client
}

func NewRedisCatalog(addr string) *RedisCatalog {
	return &RedisCatalog{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisCatalog) GetProduct(ctx context.Context, id string) (*Product, error) {
	raw, err := r.client.Get(ctx, keyProductPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get product %s: %w", id, err)
	}
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal product %s: %w", id, err)
	}
	return &p, nil
}

func (r *RedisCatalog) Close() error {
	return r.client.Close()
}
