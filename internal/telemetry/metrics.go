package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes recorded by ObserveRun.
const (
	OutcomeApproved   = "approved"
	OutcomeUnapproved = "unapproved"
	OutcomeError      = "error"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	attempts      prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "askweb",
			Name:      "pipeline_attempts",
			Help:      "Attempts used per pipeline run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "askweb",
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb",
			Name:      "stage_errors_total",
			Help:      "Failed calls per pipeline stage.",
		}, []string{"stage"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb",
			Name:      "critic_verdicts_total",
			Help:      "Critic verdicts.",
		}, []string{"verdict"}),
	}
	reg.MustRegister(m.runs, m.attempts, m.stageDuration, m.stageErrors, m.verdicts)
	return m
}

// ObserveStage records one stage call.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

// ObserveVerdict records one critic judgement.
func (m *Metrics) ObserveVerdict(approved bool) {
	if m == nil {
		return
	}
	v := "fail"
	if approved {
		v = "pass"
	}
	m.verdicts.WithLabelValues(v).Inc()
}

// ObserveRun records the end of a pipeline run.
func (m *Metrics) ObserveRun(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		m.attempts.Observe(float64(attempts))
	}
}
