package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError is a per-field validation failure.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is a non-2xx backend response, mirroring the backend's JSON error body.
type Error struct {
	Status  int                   `json:"code"`
	Message string                `json:"message"`
	Data    map[string]FieldError `json:"data"`
}

func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("backend: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %d %s %v", e.Status, e.Message, e.Data)
}

// Field returns the validation failure for name, if any.
func (e *Error) Field(name string) (FieldError, bool) {
	fe, ok := e.Data[name]
	return fe, ok
}

// Validation codes used in Error.Data.
const (
	CodeRequired       = "validation_required"
	CodeInvalidEmail   = "validation_invalid_email"
	CodeNotUnique      = "validation_not_unique"
	CodeLengthOutRange = "validation_length_out_of_range"
	CodeValuesMismatch = "validation_values_mismatch"
	CodeInvalidValue   = "validation_invalid_value"
)

func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message, Data: map[string]FieldError{}}
}

// NewValidationError builds the 400 response for failed field checks.
func NewValidationError(fields map[string]FieldError) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Message: "Failed to create record.",
		Data:    fields,
	}
}

func ErrNotFound() *Error {
	return NewError(http.StatusNotFound, "The requested resource wasn't found.")
}

func ErrUnauthorized() *Error {
	return NewError(http.StatusUnauthorized, "The request requires valid record authorization token to be set.")
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a
// backend response (network failure, cancellation).
func StatusOf(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
