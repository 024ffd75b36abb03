package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("anthropic", 403, "forbidden")
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "forbidden")
}

func TestAPIError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{Service: "openai", StatusCode: 500, Message: "fail", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAPIError("llm", 429, "rate limit")))
	assert.True(t, IsRetryable(NewAPIError("llm", 502, "bad gateway")))
	assert.True(t, IsRetryable(NewAPIError("llm", 529, "overloaded")))
	assert.True(t, IsRetryable(fmt.Errorf("calling: %w", NewAPIError("llm", 503, "unavailable"))))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(ErrUnavailable))

	assert.False(t, IsRetryable(NewAPIError("llm", 401, "unauth")))
	assert.False(t, IsRetryable(NewAPIError("llm", 400, "bad request")))
	assert.False(t, IsRetryable(ErrUnauthenticated))
	assert.False(t, IsRetryable(ErrNotFound))
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, ""},
		{ErrUnauthenticated, CodeUnauthenticated},
		{fmt.Errorf("task 4: %w", ErrNotFound), CodeNotFound},
		{ErrDenied, CodeNotFound},
		{Invalid("xp must be between 10 and 500"), CodeInvalidInput},
		{ErrConflict, CodeConflict},
		{ErrInvalidPlan, CodeUpstream},
		{NewAPIError("llm", 400, "bad"), CodeUpstream},
		{errors.New("disk full"), CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CodeOf(tc.err), "%v", tc.err)
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("difficulty %q", "legendary")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, `invalid input: difficulty "legendary"`, err.Error())
}
