package contracts

import "fmt"

// ValidationError rejects malformed input: negative or non-finite prices,
// empty identifiers, bad quantities. These fail fast and are never retried.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a validation error for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientData is the typed success response for series that are too
// short for the requested computation. It is not an error: it carries the
// exact counts needed to progress.
type InsufficientData struct {
	Message  string `json:"message"`
	Required int    `json:"required"`
	Actual   int    `json:"actual"`
}

// NewInsufficientData builds an insufficient-data status.
func NewInsufficientData(message string, required, actual int) *InsufficientData {
	return &InsufficientData{
		Message:  message,
		Required: required,
		Actual:   actual,
	}
}
