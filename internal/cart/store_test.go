package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	c := &Cart{ID: "cart-1"}
	require.NoError(t, c.Add(Item{ProductID: "p1", Variant: "L", Quantity: 2, UnitPriceSnapshot: 5000}))
	require.NoError(t, store.Save(ctx, c))

	assert.True(t, mr.Exists("cart:cart-1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:cart-1"))

	got, err := store.Get(ctx, "cart-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "L", got.Items[0].Variant)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	got, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

func TestRedisStore_GetInvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Cart{ID: "cart-2", Items: []Item{}}))
	require.NoError(t, store.Delete(ctx, "cart-2"))
	assert.False(t, mr.Exists("cart:cart-2"))
}

func TestRedisStore_SaveRequiresID(t *testing.T) {
	store, _ := setupTestRedis(t)
	require.Error(t, store.Save(context.Background(), &Cart{}))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "cart-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
