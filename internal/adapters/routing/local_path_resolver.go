package routing

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
)

// LocalPathResolver never touches the network; every segment is the spline fallback.
type LocalPathResolver struct{}

func (LocalPathResolver) ResolveSegment(_ context.Context, from, to domain.Coordinate) []domain.Coordinate {
	return geo.SmoothPath([]domain.Coordinate{from, to})
}
