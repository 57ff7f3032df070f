package ports

import (
	"context"
	"drift-spot-service/internal/domain"
)

// Sink for completion signals consumed by the notification layer.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SpotCreatedEvent) error
}

// Human-in-the-loop decision on a disambiguated spot name.
type RenameDecider interface {
	ConfirmRename(ctx context.Context, taken, suggested string) (bool, error)
}

// Adapter allowing plain functions to act as a RenameDecider.
type RenameDeciderFunc func(ctx context.Context, taken, suggested string) (bool, error)

func (f RenameDeciderFunc) ConfirmRename(ctx context.Context, taken, suggested string) (bool, error) {
	return f(ctx, taken, suggested)
}
