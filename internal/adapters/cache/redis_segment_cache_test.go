package cache

import (
	"context"
	"testing"
	"time"

	"drift-spot-service/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	a = domain.Coordinate{Lat: 40.7128, Lng: -74.0060}
	b = domain.Coordinate{Lat: 40.7148, Lng: -74.0070}
)

func newCache(t *testing.T, ttl time.Duration) (*RedisSegmentCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSegmentCache(client, ttl), s
}

func TestSegmentCacheRoundTrip(t *testing.T) {
	c, _ := newCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok, "expected miss on empty cache")

	path := []domain.Coordinate{a, {Lat: 40.7135, Lng: -74.0055}, b}
	require.NoError(t, c.Put(ctx, a, b, path))

	got, ok, err := c.Get(ctx, a, b)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, len(path))
	for i := range path {
		assert.InDelta(t, path[i].Lat, got[i].Lat, 1e-5)
		assert.InDelta(t, path[i].Lng, got[i].Lng, 1e-5)
	}

	_, ok, err = c.Get(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, ok, "segments are directional")
}

func TestSegmentCacheExpires(t *testing.T) {
	c, s := newCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, a, b, []domain.Coordinate{a, b}))
	s.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSegmentCacheRejectsShortPath(t *testing.T) {
	c, _ := newCache(t, time.Minute)
	assert.Error(t, c.Put(context.Background(), a, b, []domain.Coordinate{a}))
}

func TestSegmentCacheCorruptValue(t *testing.T) {
	c, s := newCache(t, time.Minute)
	require.NoError(t, s.Set(segmentKey(a, b), "_"))

	_, _, err := c.Get(context.Background(), a, b)
	assert.Error(t, err)
}

func TestSegmentCacheRedisDown(t *testing.T) {
	c, s := newCache(t, time.Minute)
	s.Close()

	_, _, err := c.Get(context.Background(), a, b)
	assert.Error(t, err)
	assert.Error(t, c.Put(context.Background(), a, b, []domain.Coordinate{a, b}))
}

func TestSegmentCacheNilClient(t *testing.T) {
	c := NewRedisSegmentCache(nil, time.Minute)
	_, _, err := c.Get(context.Background(), a, b)
	assert.Error(t, err)
}
