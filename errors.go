package civicpush

import (
	"errors"
	"fmt"
)

// Error represents a categorized targeting engine error.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrDeviceNotRegistered) matches any NOT_FOUND device error.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && (other.Message == "" || e.Message == other.Message)
}

// Error codes.
const (
	// ErrCodeNotFound indicates the referenced record does not exist.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeValidation indicates the input was rejected before reaching a store.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid service configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a store operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeDelivery indicates the delivery provider could not be reached.
	ErrCodeDelivery = "DELIVERY_ERROR"
)

// Common errors.
var (
	// ErrDeviceNotRegistered is returned when an opt-in update targets a
	// device that never registered a token. Callers may register and retry.
	ErrDeviceNotRegistered = &Error{
		Code:    ErrCodeNotFound,
		Message: "device not registered",
	}

	// ErrMessageNotFound is returned when a message lookup finds nothing.
	ErrMessageNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "message not found",
	}

	// ErrActivationNotFound is returned when no push activation exists for
	// a message activation.
	ErrActivationNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "push activation not found",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound checks if an error is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsValidation checks if an error is a VALIDATION_ERROR.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// IsDelivery checks if an error is a DELIVERY_ERROR.
func IsDelivery(err error) bool {
	return CodeOf(err) == ErrCodeDelivery
}
