package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrNilResponse indicates a handler returned nil instead of a Response.
	ErrNilResponse = errors.New("handler returned nil response")
	// ErrPanic wraps a value recovered from a panicking handler.
	ErrPanic = errors.New("handler panicked")
	// ErrSSENotInitialized indicates a stream was requested outside Datastar.
	ErrSSENotInitialized = errors.New("SSE not initialized for this request")
)

// HTTPError is an error carrying an HTTP status code and a user-facing
// message. Key is a stable machine-readable identifier.
type HTTPError struct {
	Code int
	Key  string
	Msg  string
}

func (e HTTPError) Error() string { return e.Key }

// Message returns Msg or, when empty, the status text for Code.
func (e HTTPError) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return http.StatusText(e.Code)
}

// WithMessage returns a copy of e with a user-facing message.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Msg = msg
	return e
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)

// ValidationError maps field names to messages.
type ValidationError url.Values

// NewValidationError creates an empty ValidationError.
func NewValidationError() ValidationError {
	return make(ValidationError)
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for field, messages := range e {
		if len(messages) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, messages[0]))
		}
	}
	return "validation error: " + strings.Join(parts, ", ")
}

// Add appends a message for field.
func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

// Get returns the first message for field.
func (e ValidationError) Get(field string) string {
	return url.Values(e).Get(field)
}

// Has reports whether field has any message.
func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

// IsEmpty reports whether there are no messages.
func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

// Error returns a Response that hands err to the configured ErrorHandler.
func Error(err error) Response {
	return errorResponse{err: err}
}
