// Package metrics exposes the engine's Prometheus counters:
//   - engine_executions_total{mode}   – executions opened (mode: live|paper)
//   - engine_trades_closed_total      – executions closed
//   - engine_suggestions_total{event} – suggestion lifecycle events (created|approved|rejected|expired)
//   - engine_kill_switch_total        – kill switch activations
//
// Counters are registered once in New and served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's counters, registered against a private registry
// so tests can construct independent instances.
type Metrics struct {
	registry *prometheus.Registry

	Executions  *prometheus.CounterVec
	Closed      prometheus.Counter
	Suggestions *prometheus.CounterVec
	KillSwitch  prometheus.Counter
}

// New creates and registers the engine counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_executions_total",
				Help: "Trade executions opened",
			},
			[]string{"mode"}, // live|paper
		),
		Closed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_trades_closed_total",
				Help: "Trade executions closed",
			},
		),
		Suggestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_suggestions_total",
				Help: "Suggestion lifecycle events",
			},
			[]string{"event"}, // created|approved|rejected|expired
		),
		KillSwitch: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_kill_switch_total",
				Help: "Kill switch activations",
			},
		),
	}

	reg.MustRegister(m.Executions, m.Closed, m.Suggestions, m.KillSwitch)
	return m
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
