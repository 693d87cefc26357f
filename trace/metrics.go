package trace

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/launchmesh/core"
)

// Attempt outcomes used as metric label values.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// MetricsSink exports attempt counters, score and latency histograms.
type MetricsSink struct {
	attempts *prometheus.CounterVec
	scores   *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewMetricsSink registers the collectors with reg. A nil reg uses the
// default registerer.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &MetricsSink{
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launchmesh_stage_attempts_total",
				Help: "Total number of stage generation attempts by outcome",
			},
			[]string{"stage", "outcome"},
		),
		scores: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launchmesh_stage_attempt_score",
				Help:    "Total quality score of evaluated stage attempts",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
			[]string{"stage"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launchmesh_stage_attempt_duration_seconds",
				Help:    "Duration of stage attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// Record implements Sink.
func (m *MetricsSink) Record(_ context.Context, a core.StageAttempt) error {
	stage := string(a.StageID)

	outcome := OutcomeRejected
	switch {
	case a.Failed():
		outcome = OutcomeFailed
	case a.Accepted:
		outcome = OutcomeAccepted
	}

	m.attempts.WithLabelValues(stage, outcome).Inc()
	m.duration.WithLabelValues(stage).Observe(a.Duration.Seconds())

	if !a.Failed() {
		m.scores.WithLabelValues(stage).Observe(a.Score.Total)
	}

	return nil
}
