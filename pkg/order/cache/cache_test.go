package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/order"
	"coffeeshop/pkg/order/memory"
)

// fakeRedis is an in-process stand-in for the Redis commands the cache uses.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	down bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

var errDown = errors.New("connection refused")

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStringResult("", errDown)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStatusResult("", errDown)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewIntResult(0, errDown)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// countingRepo counts Get calls that reach the inner store.
type countingRepo struct {
	order.Repository
	gets int
}

func (c *countingRepo) Get(ctx context.Context, id int64) (order.Order, error) {
	c.gets++
	return c.Repository.Get(ctx, id)
}

func seed(t *testing.T, repo order.Repository) order.Order {
	t.Helper()
	o, err := repo.Create(context.Background(), []order.NewLine{
		{ProductName: "Espresso", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2},
	})
	require.NoError(t, err)
	return o
}

func TestRepository_GetReadsThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New()}
	rdb := newFakeRedis()
	repo := New(inner, rdb, time.Minute)
	o := seed(t, repo)

	first, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Items[0].UnitPrice.Equal(second.Items[0].UnitPrice))
	assert.Equal(t, time.Minute, rdb.ttls[key(o.ID)])
}

func TestRepository_MutationsInvalidate(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	repo := New(memory.New(), rdb, 0)
	o := seed(t, repo)

	_, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, rdb.has(key(o.ID)))

	_, err = repo.UpdateQuantities(ctx, o.ID, map[int64]int{o.Items[0].ID: 7})
	require.NoError(t, err)
	assert.False(t, rdb.has(key(o.ID)))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Items[0].Quantity)

	require.NoError(t, repo.Delete(ctx, o.ID))
	assert.False(t, rdb.has(key(o.ID)))
	_, err = repo.Get(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestRepository_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.down = true
	repo := New(memory.New(), rdb, 0)
	o := seed(t, repo)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = repo.UpdateQuantities(ctx, o.ID, map[int64]int{o.Items[0].ID: 3})
	require.NoError(t, err)
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRepository_NotFoundIsNotCached(t *testing.T) {
	rdb := newFakeRedis()
	repo := New(memory.New(), rdb, 0)

	_, err := repo.Get(context.Background(), 5)
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.False(t, rdb.has(key(5)))
}

// racingRepo runs hook once, after the inner read of Get and before the
// cache fills Redis with that read.
type racingRepo struct {
	order.Repository
	hook func()
}

func (r *racingRepo) Get(ctx context.Context, id int64) (order.Order, error) {
	o, err := r.Repository.Get(ctx, id)
	if h := r.hook; h != nil {
		r.hook = nil
		h()
	}
	return o, err
}

func TestRepository_ReadRacingReviseDoesNotRefillStaleOrder(t *testing.T) {
	ctx := context.Background()
	inner := &racingRepo{Repository: memory.New()}
	rdb := newFakeRedis()
	repo := New(inner, rdb, 0)

	o, err := repo.Create(ctx, []order.NewLine{
		{ProductName: "Espresso", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2},
		{ProductName: "Cappuccino", UnitPrice: decimal.RequireFromString("3.50"), Quantity: 1},
	})
	require.NoError(t, err)
	espresso, cappuccino := o.Items[0].ID, o.Items[1].ID

	inner.hook = func() {
		_, err := repo.UpdateQuantities(ctx, o.ID, map[int64]int{espresso: 9})
		require.NoError(t, err)
	}
	stale, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stale.Items[0].Quantity, "the read finished before the revise")
	assert.False(t, rdb.has(key(o.ID)), "a read that raced a revise must not fill the cache")

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Items[0].Quantity)

	menu, err := catalog.New(
		catalog.Product{Name: "Espresso", UnitPrice: decimal.RequireFromString("2.00")},
		catalog.Product{Name: "Cappuccino", UnitPrice: decimal.RequireFromString("3.50")},
	)
	require.NoError(t, err)
	revised, err := order.NewService(repo, menu).ReviseOrder(ctx, o.ID, map[int64]string{cappuccino: "4"})
	require.NoError(t, err)
	assert.Equal(t, 9, revised.Items[0].Quantity)
	assert.Equal(t, 4, revised.Items[1].Quantity)
}
