package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestLivenessHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	LivenessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestPingCheck(t *testing.T) {
	assert.Equal(t, StatusOK, PingCheck(fakePinger{})(context.Background()))
	assert.Equal(t, StatusDown, PingCheck(fakePinger{err: errors.New("closed")})(context.Background()))
}

func TestConfiguredCheck(t *testing.T) {
	assert.Equal(t, StatusOK, ConfiguredCheck(true)(context.Background()))
	assert.Equal(t, StatusDegraded, ConfiguredCheck(false)(context.Background()))
}

func TestChecker_Readiness(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("database", PingCheck(fakePinger{}))
	c.Register("llm", ConfiguredCheck(false))
	assert.True(t, c.IsReady(context.Background()), "degraded is still ready")

	c.Register("database", PingCheck(fakePinger{err: errors.New("down")}))
	assert.False(t, c.IsReady(context.Background()))
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("database", PingCheck(fakePinger{}))

	rr := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ready"`)

	c.Register("database", PingCheck(fakePinger{err: errors.New("down")}))
	rr = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
}
