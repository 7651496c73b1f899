package medsearch

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check.
var (
	ErrUnauthorized = errors.New("medsearch: unauthorized")
	ErrRateLimited  = errors.New("medsearch: user searched too many times")
	ErrServer       = errors.New("medsearch: server error")
)

// ValidationError is returned when the gateway rejects the request body.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "medsearch: invalid request: " + e.Message }

// StatusError carries an unexpected HTTP status. It unwraps to ErrServer for 5xx.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("medsearch: unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrServer
	}
	return nil
}
