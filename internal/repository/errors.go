// Package repository defines the store ports used by the service layer,
// the sentinel errors shared by every backend, and the MySQL
// implementation of those ports.  Alternative backends live in the
// memory and mongostore subpackages.
package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
// Handlers translate it into a redirect to the catalog.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by ActorStore.Create when the normalized
// email is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional update matched the record
// but its current state did not allow the change.
var ErrConflict = errors.New("conflict")
