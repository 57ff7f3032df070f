package ports

import (
	"context"
	"drift-spot-service/internal/domain"
)

// Contract for expanding a waypoint-to-waypoint leg into displayable geometry.
type PathResolver interface {
	// Return the path from -> to. Implementations never fail: on any upstream
	// problem they degrade to local smoothing. The result contains at least from and to.
	ResolveSegment(ctx context.Context, from, to domain.Coordinate) []domain.Coordinate
}

// Optional storage for road-snapped segments.
type SegmentCache interface {
	Get(ctx context.Context, from, to domain.Coordinate) ([]domain.Coordinate, bool, error)
	Put(ctx context.Context, from, to domain.Coordinate, path []domain.Coordinate) error
}
