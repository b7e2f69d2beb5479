package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zsmoke/pickup-service/internal/domain"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
)

var _ OrderStore = (*RedisStore)(nil)

// Key layout. Orders are whole JSON documents under one key each; a set of
// ids and a number -> id key are the only indexes. Phone lookups and list
// filters scan the collection, which is fine at this scale (two shops, a few
// hundred open orders).
const (
	keyOrderPrefix  = "pickup:orders:"
	keyOrderIndex   = "pickup:orders:index"
	keyNumberPrefix = "pickup:orders:number:"
	keySequence     = "pickup:orders:seq"
)

// RedisStore is the primary OrderStore backend.
type RedisStore struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisStore(addr string, c clock.Clock) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		clock:  c,
	}
}

// Ping verifies connectivity at startup.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	seq, err := r.client.Incr(ctx, keySequence).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: next order number: %w", err)
	}

	now := r.clock.Now()
	cp := o.Clone()
	cp.ID = uuid.NewString()
	cp.Number = FormatNumber(seq)
	cp.Status = domain.StatusPending
	cp.Timeline.PlacedAt = now
	cp.CreatedAt = now
	cp.UpdatedAt = now
	cp.Version = 1

	raw, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("redis: marshal order %s: %w", cp.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyOrderPrefix+cp.ID, raw, 0)
		pipe.SAdd(ctx, keyOrderIndex, cp.ID)
		pipe.Set(ctx, keyNumberPrefix+strings.ToUpper(cp.Number), cp.ID, 0)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: create order %s: %w", cp.ID, err)
	}
	return cp, nil
}

func (r *RedisStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	raw, err := r.client.Get(ctx, keyOrderPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get order %s: %w", id, err)
	}
	return unmarshalOrder(raw)
}

func (r *RedisStore) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	key := keyNumberPrefix + strings.ToUpper(strings.TrimSpace(number))
	id, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: resolve order number %q: %w", number, err)
	}
	return r.GetByID(ctx, id)
}

func (r *RedisStore) GetByPhone(ctx context.Context, phone string) ([]*domain.Order, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Order
	for _, o := range all {
		if domain.SamePhone(o.Phone, phone) {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *RedisStore) List(ctx context.Context, f Filter) ([]*domain.Order, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Order
	for _, o := range all {
		if matches(o, f) {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Update is a compare-and-swap on the order's version, implemented with
// WATCH so a concurrent write to the same order aborts the transaction.
func (r *RedisStore) Update(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	key := keyOrderPrefix + o.ID
	cp := o.Clone()

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("redis: get order %s: %w", o.ID, err)
		}
		current, err := unmarshalOrder(raw)
		if err != nil {
			return err
		}
		if current.Version != cp.Version {
			return ErrConflict
		}

		cp.Version++
		cp.UpdatedAt = r.clock.Now()
		out, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("redis: marshal order %s: %w", cp.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("redis: update order %s: %w", o.ID, err)
	}
	return cp, nil
}

func (r *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return buildStats(all, r.clock.Now()), nil
}

func (r *RedisStore) loadAll(ctx context.Context) ([]*domain.Order, error) {
	ids, err := r.client.SMembers(ctx, keyOrderIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load order index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyOrderPrefix + id
	}
	raws, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(raws))
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue // id in index but document gone; skip
		}
		o, err := unmarshalOrder(s)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func unmarshalOrder(raw string) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("redis: unmarshal order: %w", err)
	}
	return &o, nil
}
