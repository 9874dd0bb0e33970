// Package metrics holds the Prometheus instrumentation for decisiond.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all decisiond metrics. Metrics register on a private
// Prometheus registry so parallel tests never collide on the global.
type Registry struct {
	reg *prometheus.Registry

	// Webhook ingest metrics
	WebhooksTotal  *prometheus.CounterVec
	WebhookErrors  *prometheus.CounterVec
	PayloadDropped *prometheus.CounterVec

	// Decision pipeline metrics
	DecisionsTotal *prometheus.CounterVec
	GateFailures   *prometheus.CounterVec
	EvalDuration   prometheus.Histogram

	// Provider metrics
	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec

	// Store gauges
	StoreSize *prometheus.GaugeVec
}

// NewRegistry creates the registry with every decisiond metric bound.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		WebhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisiond_webhooks_total",
				Help: "Total webhooks accepted by detected source",
			},
			[]string{"source"},
		),

		WebhookErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisiond_webhook_errors_total",
				Help: "Total webhooks rejected by error kind",
			},
			[]string{"kind"},
		),

		PayloadDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisiond_payloads_dropped_total",
				Help: "Total stale payloads dropped by store",
			},
			[]string{"store"},
		),

		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisiond_decisions_total",
				Help: "Total decisions emitted by verdict",
			},
			[]string{"decision"},
		),

		GateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisiond_gate_failures_total",
				Help: "Total gate failures by gate name",
			},
			[]string{"gate"},
		),

		EvalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decisiond_eval_duration_seconds",
				Help:    "Duration of one full decision evaluation",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
			},
		),

		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisiond_provider_calls_total",
				Help: "Total provider calls by provider and data origin",
			},
			[]string{"provider", "source"},
		),

		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decisiond_provider_duration_ms",
				Help:    "Provider call duration in milliseconds",
				Buckets: []float64{10, 25, 50, 100, 200, 400, 600, 1200, 2000},
			},
			[]string{"provider"},
		),

		StoreSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "decisiond_store_entries",
				Help: "Current live entries per store",
			},
			[]string{"store"},
		),
	}

	r.reg.MustRegister(
		r.WebhooksTotal,
		r.WebhookErrors,
		r.PayloadDropped,
		r.DecisionsTotal,
		r.GateFailures,
		r.EvalDuration,
		r.ProviderCalls,
		r.ProviderDuration,
		r.StoreSize,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (r *Registry) Gather() prometheus.Gatherer { return r.reg }

// RecordWebhook counts an accepted webhook.
func (r *Registry) RecordWebhook(source string) {
	r.WebhooksTotal.WithLabelValues(source).Inc()
}

// RecordWebhookError counts a rejected webhook by error kind.
func (r *Registry) RecordWebhookError(kind string) {
	r.WebhookErrors.WithLabelValues(kind).Inc()
}

// RecordDrop counts an out-of-order payload dropped by a store.
func (r *Registry) RecordDrop(store string) {
	r.PayloadDropped.WithLabelValues(store).Inc()
}

// RecordDecision counts an emitted verdict and its evaluation time.
func (r *Registry) RecordDecision(decision string, elapsed time.Duration) {
	r.DecisionsTotal.WithLabelValues(decision).Inc()
	r.EvalDuration.Observe(elapsed.Seconds())
}

// RecordGateFailure counts the gate that stopped an evaluation.
func (r *Registry) RecordGateFailure(gate string) {
	r.GateFailures.WithLabelValues(gate).Inc()
}

// RecordProviderCall counts one provider call outcome.
func (r *Registry) RecordProviderCall(provider, source string, durationMs int64) {
	r.ProviderCalls.WithLabelValues(provider, source).Inc()
	r.ProviderDuration.WithLabelValues(provider).Observe(float64(durationMs))
}

// SetStoreSize updates a store's live-entry gauge.
func (r *Registry) SetStoreSize(store string, n int) {
	r.StoreSize.WithLabelValues(store).Set(float64(n))
}
