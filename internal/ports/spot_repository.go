package ports

import (
	"context"
	"drift-spot-service/internal/domain"
)

// Port: a boundary for storing and retrieving published spots.
type SpotRepository interface {
	CreateSpot(ctx context.Context, spot *domain.Spot) (*domain.Spot, error)
	// Report whether no stored spot uses name, compared case-insensitively.
	IsSpotNameUnique(ctx context.Context, name string) (bool, error)
	ListSpots(ctx context.Context) ([]*domain.Spot, error)
	// Return domain.ErrSpotNotFound when id is unknown.
	GetSpot(ctx context.Context, id string) (*domain.Spot, error)
}
