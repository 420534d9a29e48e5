package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no session exists for an identifier.
	ErrNotFound = errors.New("session not found")

	// ErrSessionCompleted is returned when a completed session is modified.
	ErrSessionCompleted = errors.New("session already completed")
)

// ValidationError reports bad or missing client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError reports a persistence I/O failure.
type StorageError struct {
	Op  StorageOp
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Kind returns the taxonomy name used in API error bodies.
func (e *StorageError) Kind() string {
	if e.Op == StorageOpWrite {
		return "StorageWriteError"
	}
	return "StorageReadError"
}

// DispatchError reports a failed or timed out engine invocation.
type DispatchError struct {
	Cause   DispatchCause
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("dispatch %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("dispatch %s: %s", e.Cause, e.Message)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// PolicyError reports a destination refused by the dial policy.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	if e.Reason == "" {
		return "destination blocked by dial policy"
	}
	return "destination blocked by dial policy: " + e.Reason
}
