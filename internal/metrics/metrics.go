// Package metrics exposes Prometheus counters for activations and
// translations, and a small debug HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Activation results.
const (
	ActivationAccepted = "accepted"
	ActivationRejected = "rejected"
	ActivationEmpty    = "empty"
)

// Translation outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	activations  *prometheus.CounterVec
	translations *prometheus.CounterVec
	chunks       prometheus.Counter
	stale        prometheus.Counter
	duration     *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cliptrans_activations_total",
			Help: "Translation activations by result",
		}, []string{"result"}),
		translations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cliptrans_translations_total",
			Help: "Finished translations by outcome",
		}, []string{"outcome"}),
		chunks: f.NewCounter(prometheus.CounterOpts{
			Name: "cliptrans_chunks_total",
			Help: "Streamed chunks delivered to the UI",
		}),
		stale: f.NewCounter(prometheus.CounterOpts{
			Name: "cliptrans_stale_events_total",
			Help: "Events dropped because their request was no longer active",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cliptrans_translation_duration_seconds",
			Help:    "Time from request start to its terminal event",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
		}, []string{"outcome"}),
	}
}

// Activation counts one activation attempt.
func (m *Metrics) Activation(result string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(result).Inc()
}

// Translation records a finished translation.
func (m *Metrics) Translation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Chunk counts one delivered chunk.
func (m *Metrics) Chunk() {
	if m == nil {
		return
	}
	m.chunks.Inc()
}

// Stale counts one dropped stale event.
func (m *Metrics) Stale() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
