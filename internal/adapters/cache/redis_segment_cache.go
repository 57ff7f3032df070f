package cache

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/platform/obs"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const segmentKeyPrefix = "segment:v1:"

// RedisSegmentCache stores road-snapped segments as encoded polylines.
// Endpoints are keyed at 1e-5 degrees (about a metre), the polyline precision.
type RedisSegmentCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSegmentCache(client *redis.Client, ttl time.Duration) *RedisSegmentCache {
	return &RedisSegmentCache{Client: client, TTL: ttl}
}

func segmentKey(from, to domain.Coordinate) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) }
	return segmentKeyPrefix + f(from.Lat) + "," + f(from.Lng) + ";" + f(to.Lat) + "," + f(to.Lng)
}

// Fetch the cached path for a segment. A miss is (nil, false, nil).
func (s *RedisSegmentCache) Get(
	ctx context.Context,
	from domain.Coordinate,
	to domain.Coordinate,
) (_ []domain.Coordinate, _ bool, err error) {
	defer obs.Time(ctx, "segment.cache.Get")(&err)

	if s.Client == nil {
		return nil, false, errors.New("segment cache: redis client is nil")
	}

	encoded, err := s.Client.Get(ctx, segmentKey(from, to)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get segment cache: %w", err)
	}

	path, err := geo.DecodePolyline(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("get segment cache: %w", err)
	}
	if len(path) < 2 {
		return nil, false, nil
	}

	return path, true, nil
}

// Store a resolved segment, replacing any previous value.
func (s *RedisSegmentCache) Put(
	ctx context.Context,
	from domain.Coordinate,
	to domain.Coordinate,
	path []domain.Coordinate,
) error {
	if s.Client == nil {
		return errors.New("segment cache: redis client is nil")
	}

	if len(path) < 2 {
		return fmt.Errorf("insert segment cache: path has %d points", len(path))
	}

	if err := s.Client.Set(ctx, segmentKey(from, to), geo.EncodePolyline(path), s.TTL).Err(); err != nil {
		return fmt.Errorf("insert segment cache: %w", err)
	}

	return nil
}
