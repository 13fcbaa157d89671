package services

import (
	"errors"
	"fmt"
)

// Failure taxonomy surfaced to the handler layer. Handlers map these to HTTP
// status codes; services never swallow a rejected mutation.
var (
	// ErrValidation rejects malformed input before touching storage
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthorized rejects callers without an approved membership or
	// sufficient role
	ErrNotAuthorized = errors.New("not authorized")
	// ErrStateConflict rejects an operation the current state does not allow,
	// including storage uniqueness violations racing with a check
	ErrStateConflict = errors.New("state conflict")
	// ErrNotFound signals an unknown proposal, candidate, club or receipt
	ErrNotFound = errors.New("not found")
)

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

func notFoundErr(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}
