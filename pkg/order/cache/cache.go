// Package cache decorates an order repository with a Redis read-through
// cache for single-order lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"coffeeshop/pkg/order"
)

// KeyOrder is the cache key of one order: coffeeshop:order:{id}.
const KeyOrder = "coffeeshop:order:%d"

// DefaultTTL bounds staleness if an invalidation is lost.
const DefaultTTL = 5 * time.Minute

// Client is the subset of *redis.Client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Repository caches Get results and drops them on every mutation of the
// same order. Redis failures are ignored; the inner repository stays the
// source of truth.
//
// A fill is skipped when any mutation finished while its inner read was in
// flight, so a read that raced a commit never writes the older order back.
// This holds within one process. Across processes the TTL bounds staleness.
type Repository struct {
	inner order.Repository
	rdb   Client
	ttl   time.Duration

	mu  sync.Mutex // guards gen and orders fills against invalidations
	gen uint64
}

// New wraps inner. A non-positive ttl selects DefaultTTL.
func New(inner order.Repository, rdb Client, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{inner: inner, rdb: rdb, ttl: ttl}
}

func key(id int64) string { return fmt.Sprintf(KeyOrder, id) }

// Create passes through; a new order has nothing to invalidate.
func (r *Repository) Create(ctx context.Context, lines []order.NewLine) (order.Order, error) {
	return r.inner.Create(ctx, lines)
}

// Get serves from Redis when possible and fills it on a miss.
func (r *Repository) Get(ctx context.Context, id int64) (order.Order, error) {
	if s, err := r.rdb.Get(ctx, key(id)).Result(); err == nil {
		var o order.Order
		if json.Unmarshal([]byte(s), &o) == nil {
			return o, nil
		}
	}

	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	o, err := r.inner.Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	b, err := json.Marshal(o)
	if err != nil {
		return o, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		_ = r.rdb.Set(ctx, key(id), b, r.ttl).Err()
	}
	return o, nil
}

// List passes through.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	return r.inner.List(ctx)
}

// UpdateQuantities invalidates the cached order whatever the outcome.
func (r *Repository) UpdateQuantities(ctx context.Context, id int64, quantities map[int64]int) (order.Order, error) {
	o, err := r.inner.UpdateQuantities(ctx, id, quantities)
	r.invalidate(ctx, id)
	return o, err
}

// Delete invalidates the cached order whatever the outcome.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	err := r.inner.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *Repository) invalidate(ctx context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	// ctx may already be past its deadline here.
	_ = r.rdb.Del(context.WithoutCancel(ctx), key(id)).Err()
}

// Ping reports whether Redis is reachable.
func Ping(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
