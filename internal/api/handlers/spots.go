package handlers

import (
	"drift-spot-service/internal/api/dto"
	"drift-spot-service/internal/export"
	"drift-spot-service/internal/ports"
	"fmt"
	"log"
	"net/http"
)

// SpotHandler exposes read-only spot retrieval endpoints.
type SpotHandler struct {
	Repo ports.SpotRepository
}

func (h *SpotHandler) List(w http.ResponseWriter, r *http.Request) {
	spots, err := h.Repo.ListSpots(r.Context())
	if err != nil {
		writeDomainError(w, r, "list spots", err)
		return
	}

	res := dto.ListSpotsResponse{Spots: make([]dto.SpotResponse, 0, len(spots))}
	for _, s := range spots {
		res.Spots = append(res.Spots, toSpotResponse(s))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *SpotHandler) Get(w http.ResponseWriter, r *http.Request) {
	spot, err := h.Repo.GetSpot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, "get spot", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toSpotResponse(spot))
}

// KML serves a single spot as a downloadable KML document.
func (h *SpotHandler) KML(w http.ResponseWriter, r *http.Request) {
	spot, err := h.Repo.GetSpot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, "export spot", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", spot.ID+".kml"))
	if err := export.WriteSpotsKML(w, spot.Name, spot); err != nil {
		log.Printf("kml export failed: id=%s err=%v", spot.ID, err)
	}
}
