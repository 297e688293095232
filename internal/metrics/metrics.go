// Package metrics holds the Prometheus collectors for the client transport,
// the refresh coordinator and the dev server. Each Metrics value owns a
// private registry so several instances can coexist in one process.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eumgrid"

// Refresh outcomes.
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshSkipped   = "already_renewed"
)

// StatusError labels requests that never produced an HTTP status.
const StatusError = "error"

// Metrics is a set of collectors registered on their own registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	clientRequests *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	refreshes      *prometheus.CounterVec
	gridLoads      *prometheus.CounterVec

	serverInFlight prometheus.Gauge
	serverRequests *prometheus.CounterVec
	serverDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		clientRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "requests_total",
				Help:      "Outbound API requests by path and response status.",
			},
			[]string{"path", "status"},
		),
		clientDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "request_duration_seconds",
				Help:      "Duration of outbound API requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"path"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "refresh_total",
				Help:      "Credential renewal episodes by outcome.",
			},
			[]string{"outcome"},
		),
		gridLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grid",
				Name:      "loads_total",
				Help:      "Grid loads by call id and outcome.",
			},
			[]string{"call_id", "outcome"},
		),

		serverInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		serverRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		serverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.clientRequests,
		m.clientDuration,
		m.refreshes,
		m.gridLoads,
		m.serverInFlight,
		m.serverRequests,
		m.serverDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one outbound request. status <= 0 means the
// request failed before a response arrived.
func (m *Metrics) ObserveRequest(path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := StatusError
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.clientRequests.WithLabelValues(path, label).Inc()
	m.clientDuration.WithLabelValues(path).Observe(d.Seconds())
}

// ObserveRefresh records the outcome of a renewal episode.
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveGridLoad records the outcome of a grid load.
func (m *Metrics) ObserveGridLoad(callID string, err error) {
	if m == nil {
		return
	}
	if callID == "" {
		callID = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.gridLoads.WithLabelValues(callID, outcome).Inc()
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with server-side HTTP metrics.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.serverInFlight.Inc()
		defer m.serverInFlight.Dec()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		m.serverRequests.WithLabelValues(method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.serverDuration.WithLabelValues(method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
