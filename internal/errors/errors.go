// Package errors provides the error taxonomy shared by the store, the tool
// bridge, and the HTTP API.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFound also covers records the caller may not see. Callers outside
	// the store never learn which of the two applied.
	ErrNotFound     = errors.New("not found or access denied")
	ErrDenied       = errors.New("insufficient role")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
	ErrInvalidPlan  = errors.New("invalid plan")
	ErrUpstream     = errors.New("upstream failure")
	ErrTimeout      = errors.New("operation timed out")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("service unavailable")
)

// Code is the stable, caller-visible classification of an error.
type Code string

const (
	CodeUnauthenticated Code = "unauthenticated"
	CodeNotFound        Code = "not_found"
	CodeInvalidInput    Code = "invalid_input"
	CodeConflict        Code = "conflict"
	CodeUpstream        Code = "upstream"
	CodeInternal        Code = "internal"
)

// CodeOf classifies err. ErrDenied is reported as not_found so that a caller
// cannot probe for records owned by someone else.
func CodeOf(err error) Code {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDenied):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidPlan), errors.Is(err, ErrUpstream),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrRateLimit),
		errors.Is(err, ErrUnavailable), errors.As(err, &apiErr):
		return CodeUpstream
	default:
		return CodeInternal
	}
}

// Invalid wraps ErrInvalidInput with a field-specific message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504, 529:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
