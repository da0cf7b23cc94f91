package domain

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned before any network I/O when no credential was supplied.
var ErrMissingCredential = errors.New("API credential is required")

// ErrInvalidRequest wraps request validation failures detected before any network I/O.
var ErrInvalidRequest = errors.New("invalid request")

// APIError is a non-2xx upstream response.
type APIError struct {
	Message    string
	StatusCode int
	// Metadata holds the headers of the failed response; deprecation and rate-limit
	// signals can accompany errors too.
	Metadata ResponseMetadata
}

// Error returns the upstream message.
func (e *APIError) Error() string {
	return e.Message
}

// FallbackMessage is used when an error body carries no usable message.
func FallbackMessage(statusCode int) string {
	return fmt.Sprintf("HTTP error, status=%d", statusCode)
}

// TransportError is a network failure before any response was received.
type TransportError struct {
	Op  string
	Err error
}

// Error describes the failed operation.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeWarning reports a malformed SSE payload that was skipped.
type DecodeWarning struct {
	Line    int
	Payload string
	Err     error
}

// Error describes the skipped payload.
func (w *DecodeWarning) Error() string {
	return fmt.Sprintf("skipping malformed event on line %d: %v", w.Line, w.Err)
}

// Unwrap returns the parse error.
func (w *DecodeWarning) Unwrap() error {
	return w.Err
}

// StatusCode returns the HTTP status of an APIError anywhere in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
