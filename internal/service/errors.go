// Package service holds the marketplace engines: identity, catalog,
// booking and review aggregation.  Every operation takes the caller's
// model.Identity explicitly and reports failures through the sentinel
// errors below.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/service-marketplace/internal/repository"
)

var (
	// ErrValidation marks missing or malformed input.  Use errors.As with
	// *ValidationError to get the offending field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the caller lacks the role,
	// ownership or participation an operation requires.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition is returned when a booking's status does not
	// allow the requested action.
	ErrInvalidTransition = errors.New("invalid booking state")
	// ErrConflict is returned for uniqueness violations.
	ErrConflict = errors.New("conflict")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func unauthorized(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
}

func invalidTransition(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, msg)
}

// storeErr maps repository errors into the service taxonomy.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrForbidden):
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case errors.Is(err, repository.ErrEmailExists):
		return fmt.Errorf("%s: %w: email already registered", op, ErrConflict)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
}

// Class returns a short label for err, used for metrics.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "persistence"
	}
}
