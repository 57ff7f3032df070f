package handlers

import (
	"context"
	"drift-spot-service/internal/api/dto"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/ports"
	"drift-spot-service/internal/services"
	"net/http"
)

// DraftHandler drives the caller's spot creation session.
type DraftHandler struct {
	Sessions *services.SessionRegistry
}

// session resolves the caller's session, writing a 400 when identity is missing.
func (h *DraftHandler) session(w http.ResponseWriter, r *http.Request) (*services.SpotCreationSession, bool) {
	creator, ok := creatorFromRequest(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "X-User-ID header is required")
		return nil, false
	}
	return h.Sessions.Session(creator), true
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, toDraftResponse(s.Snapshot()))
}

func (h *DraftHandler) Start(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Start(); err != nil {
		writeDomainError(w, r, "start draft", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toDraftResponse(s.Snapshot()))
}

func (h *DraftHandler) AddPoint(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.AddPointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, r, http.StatusBadRequest, "lat and lng are required")
		return
	}

	p := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	if !geo.ValidCoordinate(p) {
		writeError(w, r, http.StatusBadRequest, "coordinate is out of range")
		return
	}

	if err := s.AddPoint(p); err != nil {
		writeDomainError(w, r, "add point", err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, toDraftResponse(s.Snapshot()))
}

func (h *DraftHandler) SetName(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.SetNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.SetName(req.Name); err != nil {
		writeDomainError(w, r, "set name", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDraftResponse(s.Snapshot()))
}

func (h *DraftHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Cancel(); err != nil {
		writeDomainError(w, r, "cancel draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finish publishes the draft. A name collision is answered with 409 and a
// suggested name; the client repeats the call with accept_suggested_name set,
// and an accepted suggestion is published exactly as offered.
func (h *DraftHandler) Finish(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.FinishRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	spot, err := s.Finish(r.Context(), renameAnswer(req.AcceptSuggestedName))
	if err != nil {
		writeDomainError(w, r, "finish draft", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FinishResponse{Spot: toSpotResponse(spot)})
}

// renameAnswer turns a stored client decision into a RenameDecider.
func renameAnswer(accept *bool) ports.RenameDecider {
	if accept == nil {
		return nil
	}
	return ports.RenameDeciderFunc(func(context.Context, string, string) (bool, error) {
		return *accept, nil
	})
}

func toDraftResponse(s services.SessionSnapshot) dto.DraftResponse {
	return dto.DraftResponse{
		IsCreating:   s.IsCreating,
		Status:       s.State.String(),
		Generation:   s.Generation,
		Waypoints:    nonNil(s.Waypoints),
		RenderedPath: nonNil(s.RenderedPath),
		Name:         s.Name,
		IsProcessing: s.IsProcessing,

		SuggestedName: s.SuggestedName,
	}
}
