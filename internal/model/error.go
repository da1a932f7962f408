package model

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string       `json:"error"`
	Message       string       `json:"message"`
	Details       []FieldError `json:"details,omitempty"`
	CorrelationID string       `json:"correlationId,omitempty"`
}

// FieldError describes a single rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
	Details []FieldError
}

func (e *DomainError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}

	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// Is matches any domain error carrying the same code, so callers can test
// against the sentinels below with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error listing the rejected fields.
func NewValidationError(details ...FieldError) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: "Order request is invalid",
		Details: details,
	}
}

// NewTransitionError reports a status change the state machine does not allow.
func NewTransitionError(from, to Status) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot move %s order to %s", from, to),
	}
}

// Common domain errors
var (
	ErrValidation        = NewDomainError(ErrCodeValidation, "Order request is invalid")
	ErrOrderNotFound     = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrStoreNotFound     = NewDomainError(ErrCodeNotFound, "Store not found")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Status transition is not allowed")
	ErrConflict          = NewDomainError(ErrCodeConflict, "Order was modified concurrently, reload and retry")
)
