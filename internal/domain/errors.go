package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed search request body.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized signals a session token that failed verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited signals a user searching again inside the rate-limit window.
	ErrRateLimited = errors.New("rate limited")
	// ErrUserNotFound signals a missing user document.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyExists signals a duplicate record id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrStorageUnavailable signals that the document store could not be reached or rejected a command.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDataIntegrity signals stored data that is missing or cannot be decoded.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// ValidationError reports the first invalid field of a search request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// NewValidationError creates a validation error for field with a formatted client message.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
