package services

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/ports"
	"errors"

	"github.com/destel/rill"
)

type leg struct {
	from, to domain.Coordinate
}

// ResolveRoute road-snaps a complete waypoint list without a session.
// Legs are resolved concurrently but joined in waypoint order.
func ResolveRoute(
	ctx context.Context,
	resolver ports.PathResolver,
	waypoints []domain.Coordinate,
	concurrency int,
) ([]domain.Coordinate, error) {
	if resolver == nil {
		return nil, errors.New("resolve route: resolver is nil")
	}
	if len(waypoints) < 2 {
		return domain.CopyPath(waypoints), nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	legs := make([]leg, 0, len(waypoints)-1)
	for i := 1; i < len(waypoints); i++ {
		legs = append(legs, leg{from: waypoints[i-1], to: waypoints[i]})
	}

	resolved := rill.OrderedMap(rill.FromSlice(legs, nil), concurrency, func(l leg) ([]domain.Coordinate, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return resolver.ResolveSegment(ctx, l.from, l.to), nil
	})

	segments, err := rill.ToSlice(resolved)
	if err != nil {
		return nil, err
	}

	var path []domain.Coordinate
	for _, seg := range segments {
		path = append(path, seg...)
	}
	return path, nil
}
