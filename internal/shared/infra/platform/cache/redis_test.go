package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisCache(client, 5*time.Minute)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	mr, c := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user:1", item{Name: "ana"}, 0))

	var got item
	ok, err := c.Get(ctx, "user:1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ana", got.Name)

	raw, err := mr.Get("user:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ana"}`, raw)

	require.NoError(t, c.Delete(ctx, "user:1"))
	ok, err = c.Get(ctx, "user:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "default", item{Name: "a"}, 0))
	require.NoError(t, c.Set(ctx, "short", item{Name: "b"}, time.Second))

	assert.Equal(t, 5*time.Minute, mr.TTL("default"))
	assert.Equal(t, time.Second, mr.TTL("short"))

	mr.FastForward(2 * time.Second)
	var got item
	ok, err := c.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	mr, c := setupRedisCache(t)
	require.NoError(t, mr.Set("user:1", "{not json"))

	var got item
	ok, err := c.Get(context.Background(), "user:1", &got)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, c := setupRedisCache(t)
	mr.Close()

	var got item
	_, err := c.Get(context.Background(), "user:1", &got)
	assert.Error(t, err)
}
