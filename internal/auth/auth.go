// Package auth verifies the bearer session tokens issued by the hosted auth
// service and carries the resulting principal through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/questplan/internal/errors"
)

// Modes accepted by Config.Mode.
const (
	ModeJWT  = "jwt"
	ModeNone = "none"
)

// Principal is an authenticated caller.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal carried by ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// Require returns the principal carried by ctx or ErrUnauthenticated.
func Require(ctx context.Context) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return Principal{}, perrors.ErrUnauthenticated
	}
	return p, nil
}

// Claims are the session token claims. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config holds authentication configuration.
type Config struct {
	Mode      string // "jwt" or "none"
	Secret    []byte
	Issuer    string
	Audience  string
	DevUserID string // principal used in "none" mode
}

// Authenticator validates Authorization headers.
type Authenticator struct {
	cfg    Config
	parser *jwt.Parser
	logger zerolog.Logger
}

// New creates an Authenticator.
func New(cfg Config, logger zerolog.Logger) (*Authenticator, error) {
	switch cfg.Mode {
	case ModeNone:
		if cfg.DevUserID == "" {
			return nil, fmt.Errorf("auth mode none requires a dev user id")
		}
	case ModeJWT, "":
		cfg.Mode = ModeJWT
		if len(cfg.Secret) == 0 {
			return nil, fmt.Errorf("auth mode jwt requires a secret")
		}
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
		logger: logger.With().Str("component", "auth").Logger(),
	}, nil
}

// Verify parses and validates a raw token.
func (a *Authenticator) Verify(token string) (Principal, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.cfg.Secret, nil
	})
	if err != nil {
		reason := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "token expired"
		}
		return Principal{}, fmt.Errorf("%w: %s", perrors.ErrUnauthenticated, reason)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", perrors.ErrUnauthenticated)
	}
	return Principal{UserID: claims.Subject, Email: claims.Email}, nil
}

// Authenticate resolves the principal for an Authorization header value.
func (a *Authenticator) Authenticate(header string) (Principal, error) {
	if a.cfg.Mode == ModeNone {
		return Principal{UserID: a.cfg.DevUserID}, nil
	}
	if header == "" {
		return Principal{}, fmt.Errorf("%w: authorization header is required", perrors.ErrUnauthenticated)
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Principal{}, fmt.Errorf("%w: authorization header must use Bearer scheme", perrors.ErrUnauthenticated)
	}
	return a.Verify(strings.TrimSpace(token))
}

// Fiber returns a middleware that authenticates every request and stores the
// principal in the user context. Failures are returned as errors for the
// app's error handler to render.
func (a *Authenticator) Fiber() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := a.Authenticate(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			a.logger.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Err(err).
				Msg("unauthorized request")
			return err
		}
		c.Locals("principal", p)
		c.SetUserContext(WithPrincipal(c.UserContext(), p))
		return c.Next()
	}
}

// HTTP wraps a net/http handler with authentication.
func (a *Authenticator) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			a.logger.Warn().Str("path", r.URL.Path).Err(err).Msg("unauthorized request")
			w.Header().Set("WWW-Authenticate", `Bearer realm="questplan"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Mint signs a session token for userID. It is meant for local development
// and tests; production tokens come from the hosted auth service.
func Mint(secret []byte, userID, email, issuer, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
