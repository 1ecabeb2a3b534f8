// internal/domain/matchrules/errors.go
package matchrules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/drivehub/internal/domain/models"
)

// Error kinds. Detailed errors below unwrap to one of these, so callers
// can branch with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrLocked              = errors.New("matching is locked")
	ErrArchived            = errors.New("archived matching is immutable")
	ErrIncompatibleLicense = errors.New("incompatible license type")
	ErrCapacityExceeded    = errors.New("instructor capacity exceeded")
	ErrDuplicateStudent    = errors.New("student already assigned in this matching")
	ErrEmptyMatching       = errors.New("matching has no assignments")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("matching was modified concurrently")
)

// LicenseError reports an instructor who cannot teach the student's class.
type LicenseError struct {
	Required  string
	Available []string
}

func (e *LicenseError) Error() string {
	return fmt.Sprintf("instructor cannot teach license type %q (instructor holds: %s)",
		e.Required, strings.Join(e.Available, ", "))
}

func (e *LicenseError) Unwrap() error { return ErrIncompatibleLicense }

// CapacityError reports an instructor already at or over their limit.
type CapacityError struct {
	Load int
	Max  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("instructor has %d students, maximum is %d", e.Load, e.Max)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// TransitionError reports an operation that the current status does not allow.
type TransitionError struct {
	From   models.MatchingStatus
	Op     Op
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s matching in status %q", e.Op, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError collects malformed-input problems.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from one or more field errors.
func NewValidationError(flds ...FieldError) *ValidationError {
	return &ValidationError{Fields: flds}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add appends a field error.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Error: msg})
}

// OrNil returns nil when no field errors were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
