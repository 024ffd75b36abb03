// Package metrics provides Prometheus metrics for the questplan server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ToolCallsTotal      *prometheus.CounterVec
	LLMRequestsTotal    *prometheus.CounterVec
	LLMRequestDuration  *prometheus.HistogramVec
	PlanGenerations     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total API requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "API request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Tool bridge invocations by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		LLMRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Language model calls by conversation mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Language model call duration by conversation mode.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
			},
			[]string{"mode"},
		),
		PlanGenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_generations_total",
				Help: "Plan generation attempts by outcome.",
			},
			[]string{"outcome"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ToolCallsTotal,
		m.LLMRequestsTotal,
		m.LLMRequestDuration,
		m.PlanGenerations,
	)
	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeError
}

// RecordHTTP records one finished API request.
func (m *Metrics) RecordHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordToolCall records one tool bridge invocation.
func (m *Metrics) RecordToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome(ok)).Inc()
}

// RecordLLM records one language model call for mode (chat, plan, assistant).
func (m *Metrics) RecordLLM(mode string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(mode, outcome(ok)).Inc()
	m.LLMRequestDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordPlanGeneration records one plan generation attempt.
func (m *Metrics) RecordPlanGeneration(ok bool) {
	if m == nil {
		return
	}
	m.PlanGenerations.WithLabelValues(outcome(ok)).Inc()
}
