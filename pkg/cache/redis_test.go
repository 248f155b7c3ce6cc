package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewClientFromRedis(rdb)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	type snapshot struct {
		Enabled bool `json:"enabled"`
		Count   int  `json:"count"`
	}

	require.NoError(t, c.Set(ctx, "snap", snapshot{Enabled: true, Count: 3}, time.Minute))

	var got snapshot
	require.NoError(t, c.Get(ctx, "snap", &got))
	assert.True(t, got.Enabled)
	assert.Equal(t, 3, got.Count)
}

func TestClientMiss(t *testing.T) {
	c, _ := newTestClient(t)

	var got map[string]any
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestClientExpiry(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetString(ctx, "token", "x", time.Second))
	ok, err := c.Exists(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = c.Exists(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientDelete(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetString(ctx, "a", "1", 0))
	require.NoError(t, c.SetString(ctx, "b", "2", 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))

	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
