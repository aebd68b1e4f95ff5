package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("domain: not found")
	ErrInvalidArgument = errors.New("domain: invalid argument")
)

// ValidationError describes a caller mistake. It matches ErrInvalidArgument
// under errors.Is.
type ValidationError struct {
	Message string
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
