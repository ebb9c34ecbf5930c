// Package errors provides the typed error taxonomy surfaced by the game engine.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown covers storage failures and data-layer inconsistencies.
	CodeUnknown Code = "UNKNOWN"
	// CodeNotFound means the room or its session is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidGameAction is any rule-chain rejection.
	CodeInvalidGameAction Code = "INVALID_GAME_ACTION"
	// CodeConflict means a concurrent write won the optimistic version check.
	CodeConflict Code = "CONFLICT"
)

// Retryable reports whether the caller may resubmit after reloading state.
func (c Code) Retryable() bool {
	return c == CodeConflict
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidGameAction:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable reason
	Metadata map[string]string // Additional context for logs
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a domain error carrying extra context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the domain code from err, CodeUnknown when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound          = New(CodeNotFound, "not found")
	ErrInvalidGameAction = New(CodeInvalidGameAction, "invalid game action")
	ErrConflict          = New(CodeConflict, "version conflict")
	ErrUnknown           = New(CodeUnknown, "unknown error")
)

// Body is the wire form of an error returned to clients.
type Body struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// BodyOf builds the client-facing body of err. UNKNOWN errors are reported
// without their message or cause.
func BodyOf(err error) Body {
	var e *Error
	if !stderrors.As(err, &e) {
		return Body{Code: CodeUnknown, Message: "internal error"}
	}
	if e.Code == CodeUnknown {
		return Body{Code: CodeUnknown, Message: "internal error"}
	}
	return Body{Code: e.Code, Message: e.Error(), Retryable: e.Code.Retryable()}
}
