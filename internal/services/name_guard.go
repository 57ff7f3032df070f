package services

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/ports"
	"errors"
	"fmt"
	"html"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

// NameUniquenessGuard checks a spot name against stored spots at publish time
// and resolves collisions with a random numeric suffix.
//
// Uniqueness is best-effort: an accepted suggestion is not re-checked, so two
// concurrent publishers can still end up with the same name.
type NameUniquenessGuard struct {
	repo   ports.SpotRepository
	suffix func() int
}

func NewNameUniquenessGuard(repo ports.SpotRepository) *NameUniquenessGuard {
	return &NameUniquenessGuard{
		repo:   repo,
		suffix: func() int { return rand.IntN(100) },
	}
}

// EnsureUnique returns the name to publish under.
//
// On collision the suggestion is offered to decider. offered, when non-empty,
// is a suggestion already shown for this name and is reused instead of drawing
// a new one. A nil decider yields a *domain.NameCollisionError carrying the
// suggestion so the caller can ask later.
func (g *NameUniquenessGuard) EnsureUnique(ctx context.Context, name, offered string, decider ports.RenameDecider) (string, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateSpotName(name); err != nil {
		return "", err
	}

	if g.repo == nil {
		return "", errors.New("ensure unique: repository is nil")
	}

	unique, err := g.repo.IsSpotNameUnique(ctx, name)
	if err != nil {
		return "", &domain.PersistenceError{Op: "check spot name", Err: err}
	}
	if unique {
		return name, nil
	}

	suggested := offered
	if suggested == "" {
		suggested = g.suggest(name)
	}
	if decider == nil {
		return "", &domain.NameCollisionError{Name: name, Suggested: suggested}
	}

	accepted, err := decider.ConfirmRename(ctx, name, suggested)
	if err != nil {
		return "", fmt.Errorf("ensure unique: confirm rename: %w", err)
	}
	if !accepted {
		return "", domain.ErrUserCancelled
	}

	return suggested, nil
}

// suggest appends " <0-99>", shortening the base so the result stays within
// the name length limit. Shortening works on the unescaped text so an entity
// is never cut in half.
func (g *NameUniquenessGuard) suggest(name string) string {
	suffix := fmt.Sprintf(" %d", g.suffix())

	base := html.UnescapeString(name)
	for utf8.RuneCountInString(base)+len(suffix) > domain.MaxSpotNameLen {
		_, size := utf8.DecodeLastRuneInString(base)
		base = base[:len(base)-size]
	}

	return domain.SanitizeName(base) + suffix
}
