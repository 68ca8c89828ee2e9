// Package telemetry exposes Prometheus metrics for digest runs.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunBuckets covers runs from a single fast paper up to many papers with narration.
var RunBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600}

// Metrics groups the run collectors. A nil *Metrics records nothing.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	StageFailures *prometheus.CounterVec
	Warnings      prometheus.Counter
	Papers        prometheus.Counter
	RunDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_runs_total",
				Help: "Digest runs by outcome and caller kind",
			},
			[]string{"status", "auth_mode"},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_stage_failures_total",
				Help: "Failures per pipeline stage, contained or not",
			},
			[]string{"stage"},
		),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_warnings_total",
			Help: "Warnings attached to run results",
		}),
		Papers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_papers_processed_total",
			Help: "Papers summarized across all runs",
		}),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "digest_run_duration_seconds",
				Help:    "Digest run duration",
				Buckets: RunBuckets,
			},
			[]string{"status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.RunsTotal, m.StageFailures, m.Warnings, m.Papers, m.RunDuration)
	}
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status, authMode string, papers, warnings int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status, authMode).Inc()
	m.RunDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.Papers.Add(float64(papers))
	m.Warnings.Add(float64(warnings))
}

// StageFailed counts a failure in stage (feed, summary, image, audio, note).
func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}
