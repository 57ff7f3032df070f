package routing

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"time"
)

// StaticSegment is a canned answer for one from -> to leg.
type StaticSegment struct {
	From, To domain.Coordinate
	Path     []domain.Coordinate
	Delay    time.Duration
}

// StaticPathResolver answers from a fixed table, falling back to smoothing for
// unknown legs. Delays let callers simulate slow or out-of-order responses.
type StaticPathResolver struct {
	m map[[2]domain.Coordinate]StaticSegment
}

func NewStaticPathResolver(segments []StaticSegment) *StaticPathResolver {
	m := make(map[[2]domain.Coordinate]StaticSegment, len(segments))
	for _, s := range segments {
		m[[2]domain.Coordinate{s.From, s.To}] = s
	}
	return &StaticPathResolver{m: m}
}

func (r *StaticPathResolver) ResolveSegment(ctx context.Context, from, to domain.Coordinate) []domain.Coordinate {
	fallback := geo.SmoothPath([]domain.Coordinate{from, to})

	s, ok := r.m[[2]domain.Coordinate{from, to}]
	if !ok {
		return fallback
	}

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fallback
		case <-timer.C:
		}
	}

	return domain.CopyPath(s.Path)
}
