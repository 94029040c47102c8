// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hybrid_auth"

// Metrics owns a private registry so tests can build as many as they like
// without colliding on the global default registerer.
type Metrics struct {
	Registry *prometheus.Registry

	Logins        *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	Identity      *prometheus.CounterVec
	Guards        *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec
	HashSeconds   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by mode (cookie, jwt) and result.",
		}, []string{"mode", "result"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		Identity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_resolved_total",
			Help:      "Per-request identity resolution by source (session, token, anonymous).",
		}, []string{"source"}),
		Guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Requests rejected by a request guard (csrf, rate_limit, unauthenticated, forbidden).",
		}, []string{"guard"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Refresh-token exchanges by result.",
		}, []string{"result"}),
		HashSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "password_hash_seconds",
			Help:      "Time spent in bcrypt by operation (hash, verify).",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Logins, m.Registrations, m.Identity, m.Guards, m.Refreshes, m.HashSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveHash matches the Hasher observer signature.
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.HashSeconds.WithLabelValues(op).Observe(d.Seconds())
}

// The recorders below are no-ops on a nil *Metrics so components can run
// without instrumentation in tests.

func (m *Metrics) Login(mode, result string) {
	if m != nil {
		m.Logins.WithLabelValues(mode, result).Inc()
	}
}

func (m *Metrics) Register(result string) {
	if m != nil {
		m.Registrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Resolved(source string) {
	if m != nil {
		m.Identity.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) Rejected(guard string) {
	if m != nil {
		m.Guards.WithLabelValues(guard).Inc()
	}
}

func (m *Metrics) Refresh(result string) {
	if m != nil {
		m.Refreshes.WithLabelValues(result).Inc()
	}
}
