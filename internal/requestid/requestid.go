// Package requestid propagates request IDs through contexts and logs.
package requestid

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Header carries the request ID on HTTP requests and responses.
const Header = "X-Request-ID"

type ctxKey struct{}

// WithRequestID returns a context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID carried by ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Accept returns incoming when it is a well-formed UUID and a fresh ID
// otherwise, so callers cannot inject arbitrary text into logs.
func Accept(incoming string) string {
	if u, err := uuid.Parse(incoming); err == nil {
		return u.String()
	}
	return uuid.NewString()
}

// Logger returns logger annotated with the request ID from ctx, if any.
func Logger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := FromContext(ctx); id != "" {
		return logger.With().Str("request_id", id).Logger()
	}
	return logger
}
