package handlers

import (
	"drift-spot-service/internal/api/dto"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/ports"
	"drift-spot-service/internal/services"
	"fmt"
	"net/http"
)

const maxPreviewWaypoints = 100

type PreviewHandler struct {
	Resolver    ports.PathResolver
	Concurrency int
}

// Preview road-snaps a waypoint list without touching any creation session.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req dto.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Waypoints) < 2 || len(req.Waypoints) > maxPreviewWaypoints {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("waypoints must contain between 2 and %d points", maxPreviewWaypoints))
		return
	}
	for i, p := range req.Waypoints {
		if !geo.ValidCoordinate(p) {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("waypoint %d is out of range", i))
			return
		}
	}

	points, err := services.ResolveRoute(r.Context(), h.Resolver, req.Waypoints, h.Concurrency)
	if err != nil {
		writeDomainError(w, r, "preview route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.PreviewResponse{
		Points:         points,
		PointsPolyline: geo.EncodePolyline(points),
		LengthKm:       geo.PathLengthKm(points),
		Difficulty:     geo.ClassifyDifficulty(req.Waypoints),
	})
}
