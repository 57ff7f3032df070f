package dto

import (
	"drift-spot-service/internal/domain"
	"time"
)

type SpotResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	CreatorID      string              `json:"creator_id"`
	CreatorName    string              `json:"creator_name"`
	Points         []domain.Coordinate `json:"points"`
	PointsPolyline string              `json:"points_polyline"`
	Waypoints      []domain.Coordinate `json:"waypoints"`
	Difficulty     domain.Difficulty   `json:"difficulty"`
	DriftScore     int                 `json:"drift_score"`
	Likes          int                 `json:"likes"`
	LikedBy        []string            `json:"liked_by"`
	Comments       int                 `json:"comments"`
	LengthKm       float64             `json:"length_km"`
	CreatedAt      time.Time           `json:"created_at"`
}

type ListSpotsResponse struct {
	Spots []SpotResponse `json:"spots"`
}

type PreviewRequest struct {
	Waypoints []domain.Coordinate `json:"waypoints"`
}

type PreviewResponse struct {
	Points         []domain.Coordinate `json:"points"`
	PointsPolyline string              `json:"points_polyline"`
	LengthKm       float64             `json:"length_km"`
	Difficulty     domain.Difficulty   `json:"difficulty"`
}
