// Package common defines shared constants and sentinel errors used across
// the API, service and repository layers. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Cursor errors.
	ErrorDecode = errors.New("invalid cursor")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError carries a client-facing message for malformed or missing input.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrorValidation }

// SchedulingError reports a failed deferred-task registration. It is logged
// by the caller and never fails the operation that triggered it.
type SchedulingError struct {
	TaskID string
	Err    error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule %s: %v", e.TaskID, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// AgingError reports a failed aging update. Queue consumers must not
// acknowledge the message that produced it.
type AgingError struct {
	ResourceID string
	Err        error
}

func (e *AgingError) Error() string {
	return fmt.Sprintf("mark aged %s: %v", e.ResourceID, e.Err)
}

func (e *AgingError) Unwrap() error { return e.Err }
