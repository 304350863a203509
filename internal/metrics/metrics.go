// Package metrics provides Prometheus metrics for the chess agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent. A nil *Metrics is a no-op.
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec
	TurnDuration      *prometheus.HistogramVec
	EngineSearch      prometheus.Histogram
	WebhookDeliveries *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessagent_turns_total",
				Help: "Turns processed by command kind and outcome.",
			},
			[]string{"command", "outcome"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chessagent_turn_duration_seconds",
				Help:    "Turn processing duration by command kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		EngineSearch: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chessagent_engine_search_seconds",
				Help:    "Wall-clock time of engine searches.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		WebhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessagent_webhook_deliveries_total",
				Help: "Webhook deliveries by outcome.",
			},
			[]string{"outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessagent_http_requests_total",
				Help: "HTTP requests by method and status code.",
			},
			[]string{"method", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.TurnsTotal)
	reg.MustRegister(m.TurnDuration)
	reg.MustRegister(m.EngineSearch)
	reg.MustRegister(m.WebhookDeliveries)
	reg.MustRegister(m.HTTPRequests)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterGauge exposes a value computed at scrape time.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// RecordTurn increments the turn counter and observes its duration.
func (m *Metrics) RecordTurn(command, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(command, outcome).Inc()
	m.TurnDuration.WithLabelValues(command).Observe(seconds)
}

// ObserveSearch records an engine search duration.
func (m *Metrics) ObserveSearch(seconds float64) {
	if m == nil {
		return
	}
	m.EngineSearch.Observe(seconds)
}

// RecordDelivery increments the webhook delivery counter.
func (m *Metrics) RecordDelivery(outcome string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(outcome).Inc()
}

// RecordHTTP increments the HTTP request counter.
func (m *Metrics) RecordHTTP(method, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, status).Inc()
}
