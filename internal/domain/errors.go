package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserCancelled reports that the user declined a rename or abandoned the flow.
	ErrUserCancelled = errors.New("cancelled by user")

	ErrPublishInProgress = errors.New("spot publish in progress")
	ErrSpotNotFound      = errors.New("spot not found")
)

// ValidationError is a recoverable input problem; the draft is kept.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// InvalidNameError is raised by the uniqueness guard for names outside 3-50 chars.
// It unwraps to a ValidationError.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid spot name %q: %s", e.Name, e.Reason)
}

func (e *InvalidNameError) Unwrap() error {
	return &ValidationError{Field: "name", Reason: e.Reason}
}

// NameCollisionError carries the disambiguated alternative when no one
// was available to accept or decline it.
type NameCollisionError struct {
	Name      string
	Suggested string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("spot name %q is taken (suggested %q)", e.Name, e.Suggested)
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StateError signals a call made in the wrong session state (a caller bug).
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: not allowed in state %s", e.Op, e.State)
}

// FallbackError describes a road-snapping failure that was downgraded to
// local smoothing. It is logged, never returned to callers.
type FallbackError struct {
	From  Coordinate
	To    Coordinate
	Cause error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf(
		"routing fallback %.6f,%.6f -> %.6f,%.6f: %v",
		e.From.Lat, e.From.Lng, e.To.Lat, e.To.Lng, e.Cause,
	)
}

func (e *FallbackError) Unwrap() error { return e.Cause }
