package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", item{Name: "a"}, 0))

	var got item
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", got.Name)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	defer c.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", item{Name: "a"}, time.Second))
	now = now.Add(2 * time.Second)

	var got item
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	c.purgeExpired()
	c.mu.RLock()
	assert.Empty(t, c.store)
	c.mu.RUnlock()
}
