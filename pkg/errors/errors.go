package errors

import (
	"errors"
	"fmt"
)

// Application error kinds. Handlers map them to HTTP statuses with errors.Is.

var (
	// ErrInvalidInput indicates a submission failed validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates a required dependency (mail relay) has no credentials
	ErrNotConfigured = errors.New("not configured")

	// ErrTooLarge indicates an upload exceeded its configured byte limit
	ErrTooLarge = errors.New("payload too large")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// MissingFieldsError reports the required fields that were empty
func MissingFieldsError(fields []string) error {
	return fmt.Errorf("missing required fields %v: %w", fields, ErrInvalidInput)
}

// NotConfiguredError creates a not configured error naming the component
func NotConfiguredError(component string) error {
	return fmt.Errorf("%s: %w", component, ErrNotConfigured)
}

// InternalError creates an internal error with context
func InternalError(msg string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %v: %w", msg, err, ErrInternal)
	}
	return fmt.Errorf("%s: %w", msg, ErrInternal)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}
