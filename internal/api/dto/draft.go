package dto

import "drift-spot-service/internal/domain"

type DraftResponse struct {
	IsCreating   bool                `json:"is_creating"`
	Status       string              `json:"status"`
	Generation   uint64              `json:"generation"`
	Waypoints    []domain.Coordinate `json:"waypoints"`
	RenderedPath []domain.Coordinate `json:"rendered_path"`
	Name         string              `json:"name"`
	IsProcessing bool                `json:"is_processing"`

	SuggestedName string `json:"suggested_name,omitempty"`
}

// Pointers distinguish a missing coordinate from a zero one.
type AddPointRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type SetNameRequest struct {
	Name string `json:"name"`
}

// AcceptSuggestedName answers a previous name collision. Absent means no
// decision has been made yet.
type FinishRequest struct {
	AcceptSuggestedName *bool `json:"accept_suggested_name"`
}

type FinishResponse struct {
	Spot SpotResponse `json:"spot"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	SuggestedName string `json:"suggested_name,omitempty"`
}
