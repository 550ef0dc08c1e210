// Package metrics provides application-level metrics collection backed by Prometheus.
// Every Metrics value owns its registry so tests and multiple servers never
// collide on collector registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tipjar"

// Metrics holds the collectors used across the application.
// All methods are safe to call on a nil receiver, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rpcCalls   *prometheus.CounterVec
	rpcLatency *prometheus.HistogramVec

	signerCalls   *prometheus.CounterVec
	signerLatency *prometheus.HistogramVec

	tipOutcomes      *prometheus.CounterVec
	reauthorizations prometheus.Counter
	openSessions     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// Global is the process-wide metrics instance used by the CLI.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = New()

// New creates a Metrics with a fresh registry including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rpcCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Ledger RPC calls by method and result",
		}, []string{"method", "result"}),
		rpcLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "Ledger RPC call latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		signerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signer_calls_total",
			Help:      "Signer round trips by operation and result",
		}, []string{"op", "result"}),
		signerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "signer_call_duration_seconds",
			Help:      "Signer round trip latency, including time spent waiting for the user",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"op"}),
		tipOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tip_outcomes_total",
			Help:      "Tip attempts by outcome category and code",
		}, []string{"category", "code"}),
		reauthorizations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_reauthorizations_total",
			Help:      "Lazy re-authorizations after the signer rejected a session token",
		}),
		openSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signer_sessions_open",
			Help:      "Signer transport sessions currently open",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"method", "route"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRPCCall records a ledger RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(method string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method, result(err)).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSignerCall records one signer round trip. outcome is "ok" or the
// signer failure kind.
func (m *Metrics) RecordSignerCall(op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.signerCalls.WithLabelValues(op, outcome).Inc()
	m.signerLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordTipOutcome records the terminal outcome of a tip attempt.
func (m *Metrics) RecordTipOutcome(category, code string) {
	if m == nil {
		return
	}
	m.tipOutcomes.WithLabelValues(category, code).Inc()
}

// RecordReauthorization records a lazy re-authorization.
func (m *Metrics) RecordReauthorization() {
	if m == nil {
		return
	}
	m.reauthorizations.Inc()
}

// SessionOpened increments the open signer session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.openSessions.Inc()
}

// SessionClosed decrements the open signer session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.openSessions.Dec()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
