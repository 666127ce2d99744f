// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes used as the "outcome" label.
const (
	OutcomeSuccess             = "success"
	OutcomeUnrecorded          = "success_unrecorded"
	OutcomeInsufficientCredit  = "insufficient_credit"
	OutcomeProviderUnavailable = "provider_unavailable"
	OutcomeGenerationFailed    = "generation_failed"
	OutcomeInvalidPrompt       = "invalid_prompt"
	OutcomeError               = "error"
)

// Recorder is used by the service layer.
type Recorder interface {
	RecordGeneration(outcome string)
	RecordProviderLatency(provider, kind string, d time.Duration)
	RecordRecordWriteFailure(stage string)
	RecordTopUp(plan string, credits int)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	generations     *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	writeFailures   *prometheus.CounterVec
	creditsAdded    *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagify_generations_total",
			Help: "Generation requests by outcome.",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagify_provider_latency_seconds",
			Help:    "Latency of image provider calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider", "kind"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagify_record_write_failures_total",
			Help: "Generations billed but not recorded, by failing stage.",
		}, []string{"stage"}),
		creditsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagify_credits_added_total",
			Help: "Credits added through top-ups, by plan.",
		}, []string{"plan"}),
	}

	reg.MustRegister(
		c.generations,
		c.providerLatency,
		c.writeFailures,
		c.creditsAdded,
	)

	return c
}

func (c *Collector) RecordGeneration(outcome string) {
	c.generations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordProviderLatency(provider, kind string, d time.Duration) {
	c.providerLatency.WithLabelValues(provider, kind).Observe(d.Seconds())
}

func (c *Collector) RecordRecordWriteFailure(stage string) {
	c.writeFailures.WithLabelValues(stage).Inc()
}

func (c *Collector) RecordTopUp(plan string, credits int) {
	c.creditsAdded.WithLabelValues(plan).Add(float64(credits))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordGeneration(string)                             {}
func (Nop) RecordProviderLatency(string, string, time.Duration) {}
func (Nop) RecordRecordWriteFailure(string)                     {}
func (Nop) RecordTopUp(string, int)                             {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
