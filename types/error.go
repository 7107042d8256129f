package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is the structured error used throughout the framework. It carries a
// canonical Status, a human-readable message, and an optional details map.
// The wire shape is {"status", "message", "details"}.
type Error struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// NewError creates an Error with the given status and formatted message.
func NewError(status Status, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Status, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails attaches a details map to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// HTTPStatus returns the HTTP status code for the error's Status.
func (e *Error) HTTPStatus() int {
	return e.Status.HTTPStatus()
}

// StatusOf extracts the canonical status from an error chain.
// Unclassified errors report StatusUnknown; nil reports StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return StatusUnknown
}

// AsError converts any error into a wire-serializable *Error.
// Classified errors pass through unchanged; everything else becomes INTERNAL.
func AsError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{Status: StatusInternal, Message: err.Error()}
}

// MarshalJSON keeps the cause out of the wire shape but folds its text into
// the message so remote callers see the full chain.
func (e *Error) MarshalJSON() ([]byte, error) {
	type wire struct {
		Status  Status         `json:"status"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return json.Marshal(wire{Status: e.Status, Message: msg, Details: e.Details})
}
