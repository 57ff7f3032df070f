package handlers

import (
	"drift-spot-service/internal/api/dto"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/platform/obs"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		collision *domain.NameCollisionError
		validErr  *domain.ValidationError
		stateErr  *domain.StateError
		persist   *domain.PersistenceError
	)

	switch {
	case errors.As(err, &collision):
		writeJSON(w, r, http.StatusConflict, dto.ErrorResponse{
			Error:         collision.Error(),
			SuggestedName: collision.Suggested,
		})
	case errors.As(err, &validErr):
		writeError(w, r, http.StatusBadRequest, validErr.Error())
	case errors.As(err, &stateErr):
		writeError(w, r, http.StatusConflict, stateErr.Error())
	case errors.Is(err, domain.ErrPublishInProgress):
		writeError(w, r, http.StatusConflict, domain.ErrPublishInProgress.Error())
	case errors.Is(err, domain.ErrUserCancelled):
		writeError(w, r, http.StatusConflict, domain.ErrUserCancelled.Error())
	case errors.Is(err, domain.ErrSpotNotFound):
		writeError(w, r, http.StatusNotFound, domain.ErrSpotNotFound.Error())
	case errors.As(err, &persist):
		log.Printf("req_id=%s %s failed: %v", obs.RequestID(r.Context()), op, err)
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable, try again")
	default:
		log.Printf("req_id=%s %s failed: %v", obs.RequestID(r.Context()), op, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// creatorFromRequest reads the caller identity set by the upstream gateway.
func creatorFromRequest(r *http.Request) (domain.Creator, bool) {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		return domain.Creator{}, false
	}

	name := strings.TrimSpace(r.Header.Get("X-User-Name"))
	if name == "" {
		name = id
	}
	return domain.Creator{ID: id, Username: name}, true
}

func toSpotResponse(s *domain.Spot) dto.SpotResponse {
	points := nonNil(s.Points)
	likedBy := s.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}

	return dto.SpotResponse{
		ID:             s.ID,
		Name:           s.Name,
		CreatorID:      s.CreatorID,
		CreatorName:    s.CreatorName,
		Points:         points,
		PointsPolyline: geo.EncodePolyline(points),
		Waypoints:      nonNil(s.Waypoints),
		Difficulty:     s.Difficulty,
		DriftScore:     s.DriftScore,
		Likes:          s.Likes,
		LikedBy:        likedBy,
		Comments:       s.Comments,
		LengthKm:       geo.PathLengthKm(points),
		CreatedAt:      s.CreatedAt,
	}
}

func nonNil(path []domain.Coordinate) []domain.Coordinate {
	if path == nil {
		return []domain.Coordinate{}
	}
	return path
}
