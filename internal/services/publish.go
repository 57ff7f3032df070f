package services

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/platform/obs"
	"drift-spot-service/internal/ports"
	"errors"
	"log"

	"github.com/google/uuid"
)

// PublishCoordinator turns a finished draft into a stored Spot and announces it.
type PublishCoordinator struct {
	repo   ports.SpotRepository
	events ports.EventPublisher
	newID  func() string
}

// events may be nil when nobody listens for completion signals.
func NewPublishCoordinator(repo ports.SpotRepository, events ports.EventPublisher) *PublishCoordinator {
	return &PublishCoordinator{
		repo:   repo,
		events: events,
		newID:  uuid.NewString,
	}
}

// Persist stores a new spot built from an independent copy of the draft.
// The draft itself is never modified, so callers can retry after a failure.
func (c *PublishCoordinator) Persist(
	ctx context.Context,
	draft domain.SpotDraft,
	difficulty domain.Difficulty,
	creator domain.Creator,
) (_ *domain.Spot, err error) {
	defer obs.Time(ctx, "spots.publish")(&err)

	if c.repo == nil {
		return nil, errors.New("persist spot: repository is nil")
	}
	if len(draft.RenderedPath) < 2 {
		return nil, &domain.ValidationError{Field: "points", Reason: "rendered path needs at least 2 points"}
	}

	spot := &domain.Spot{
		ID:           c.newID(),
		Name:         draft.Name,
		CreatorID:    creator.ID,
		CreatorName:  creator.Username,
		Points:       domain.CopyPath(draft.RenderedPath),
		Waypoints:    domain.CopyPath(draft.Waypoints),
		Difficulty:   difficulty,
		LikedBy:      []string{},
		CommentsList: []domain.Comment{},
		Runs:         []domain.DriftRun{},
	}

	created, err := c.repo.CreateSpot(ctx, spot)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "create spot", Err: err}
	}

	log.Printf(
		"spot created id=%s name=%q creator=%s difficulty=%s points=%d length_km=%.2f",
		created.ID, created.Name, created.CreatorID, created.Difficulty,
		len(created.Points), geo.PathLengthKm(created.Points),
	)

	if c.events != nil {
		if err := c.events.Publish(ctx, domain.NewSpotCreatedEvent(created)); err != nil {
			log.Printf("spot created event id=%s publish error: %v", created.ID, err)
		}
	}

	return created, nil
}
