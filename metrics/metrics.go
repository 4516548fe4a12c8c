// Package metrics provides Prometheus-based metrics recording for turn
// processing. The driver reports through the Recorder interface so
// deployments without a metrics backend pay nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives turn-processing observations from the driver.
type Recorder interface {
	// TurnFinished records one completed HandleTurn call with its outcome
	// (completed, waiting_for_user, error, control_loop_exceeded) and duration.
	TurnFinished(outcome string, d time.Duration)
	// Hop records one holder invocation.
	Hop(holder string)
	// Handoff records one control transfer to the named capability.
	Handoff(capability string)
}

// NoOpRecorder discards all observations.
type NoOpRecorder struct{}

// TurnFinished implements Recorder.
func (NoOpRecorder) TurnFinished(string, time.Duration) {}

// Hop implements Recorder.
func (NoOpRecorder) Hop(string) {}

// Handoff implements Recorder.
func (NoOpRecorder) Handoff(string) {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	turnsTotal    *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	hopsTotal     *prometheus.CounterVec
	handoffsTotal *prometheus.CounterVec
}

// NewPrometheusRecorder registers the turn metrics with the given registerer
// (use prometheus.DefaultRegisterer in production wiring).
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportmesh_turns_total",
				Help: "Total number of processed turns by outcome",
			},
			[]string{"outcome"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supportmesh_turn_duration_seconds",
				Help:    "Duration of turn processing in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		hopsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportmesh_hops_total",
				Help: "Total number of holder invocations by holder",
			},
			[]string{"holder"},
		),
		handoffsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportmesh_handoffs_total",
				Help: "Total number of control transfers by target capability",
			},
			[]string{"capability"},
		),
	}
}

// TurnFinished implements Recorder.
func (r *PrometheusRecorder) TurnFinished(outcome string, d time.Duration) {
	r.turnsTotal.WithLabelValues(outcome).Inc()
	r.turnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Hop implements Recorder.
func (r *PrometheusRecorder) Hop(holder string) {
	r.hopsTotal.WithLabelValues(holder).Inc()
}

// Handoff implements Recorder.
func (r *PrometheusRecorder) Handoff(capability string) {
	r.handoffsTotal.WithLabelValues(capability).Inc()
}
