package repositories

import (
	"context"
	"drift-spot-service/internal/domain"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemorySpotRepository keeps spots in process memory. It backs the service
// when no database is configured.
type MemorySpotRepository struct {
	mu    sync.RWMutex
	spots []*domain.Spot
	now   func() time.Time
}

func NewMemorySpotRepository(seed ...*domain.Spot) *MemorySpotRepository {
	r := &MemorySpotRepository{now: time.Now}
	for _, s := range seed {
		r.spots = append(r.spots, cloneSpot(s))
	}
	return r
}

// MockSpots is the demo dataset served when nothing else is configured.
func MockSpots() []*domain.Spot {
	return []*domain.Spot{
		{
			ID:          "s1",
			Name:        "Industrial Zone",
			CreatorID:   "u2",
			CreatorName: "Driver_77",
			Points: []domain.Coordinate{
				{Lat: 40.7128, Lng: -74.0060},
				{Lat: 40.7138, Lng: -74.0050},
				{Lat: 40.7148, Lng: -74.0070},
			},
			Difficulty: domain.DifficultyHard,
			DriftScore: 890,
			Likes:      124,
			LikedBy:    []string{"u3"},
			Comments:   12,
		},
		{
			ID:          "s2",
			Name:        "Harbor Loop",
			CreatorID:   "u3",
			CreatorName: "T_Master",
			Points: []domain.Coordinate{
				{Lat: 40.7110, Lng: -74.0090},
				{Lat: 40.7100, Lng: -74.0100},
			},
			Difficulty: domain.DifficultyMedium,
			DriftScore: 650,
			Likes:      45,
			LikedBy:    []string{},
			Comments:   3,
		},
	}
}

func cloneSpot(s *domain.Spot) *domain.Spot {
	out := *s
	out.Points = domain.CopyPath(s.Points)
	out.Waypoints = domain.CopyPath(s.Waypoints)
	out.LikedBy = append([]string(nil), s.LikedBy...)
	out.CommentsList = append([]domain.Comment(nil), s.CommentsList...)
	out.Runs = append([]domain.DriftRun(nil), s.Runs...)
	return &out
}

func (r *MemorySpotRepository) CreateSpot(_ context.Context, spot *domain.Spot) (*domain.Spot, error) {
	if spot == nil {
		return nil, fmt.Errorf("create spot: spot is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.spots {
		if s.ID == spot.ID {
			return nil, fmt.Errorf("create spot: duplicate id %q", spot.ID)
		}
	}

	stored := cloneSpot(spot)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	r.spots = append(r.spots, stored)

	return cloneSpot(stored), nil
}

func (r *MemorySpotRepository) IsSpotNameUnique(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.spots {
		if strings.EqualFold(s.Name, name) {
			return false, nil
		}
	}
	return true, nil
}

func (r *MemorySpotRepository) ListSpots(_ context.Context) ([]*domain.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Spot, 0, len(r.spots))
	for _, s := range r.spots {
		out = append(out, cloneSpot(s))
	}
	return out, nil
}

func (r *MemorySpotRepository) GetSpot(_ context.Context, id string) (*domain.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.spots {
		if s.ID == id {
			return cloneSpot(s), nil
		}
	}
	return nil, domain.ErrSpotNotFound
}
