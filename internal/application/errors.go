package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no authenticated principal is present.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the principal does not own the resource or lacks the required role.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute such as a username is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when a login or token cannot be verified.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("application: appointment conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// NewValidationError builds a ValidationError holding a single field issue.
func NewValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// ConflictError reports the appointments that overlap a proposed time range.
type ConflictError struct {
	Conflicts []Appointment
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("appointment overlaps %d existing appointment(s)", len(c.Conflicts))
}

// Is lets errors.Is(err, ErrConflict) match any ConflictError.
func (c *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
