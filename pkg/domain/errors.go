package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrNetwork    = errors.New("network failure")
	ErrConflict   = errors.New("conflict")
)

// ValidationError reports a missing or invalid field in a submitted draft.
// The form that produced it stays open.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation against an id that is not in the
// collection, usually a stale or already deleted record.
type NotFoundError struct {
	Entity EntityType
	ID     ID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is reports ErrNotFound as a match.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NetworkError wraps a failed call to a remote collaborator. StatusCode is
// zero when the request never produced a response.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports ErrNetwork as a match.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// FirstValidation returns the first *ValidationError contained in err,
// including errors combined with errors.Join.
func FirstValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
