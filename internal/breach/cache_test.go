package breach

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisRangeCache_RoundTrip(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	c := NewRedisRangeCache(rdb, time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "5BAA6")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "5BAA6", "ABC:1"))

	body, ok, err := c.Get(ctx, "5BAA6")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ABC:1", body)

	assert.True(t, mr.Exists("breach:range:5BAA6"))
	assert.Equal(t, time.Hour, mr.TTL("breach:range:5BAA6"))
}

func TestRedisRangeCache_Expires(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	c := NewRedisRangeCache(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "5BAA6", "ABC:1"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "5BAA6")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRangeCache_Unavailable(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	c := NewRedisRangeCache(rdb, time.Minute)
	mr.Close()

	_, _, err := c.Get(context.Background(), "5BAA6")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "5BAA6", "x"))
}
