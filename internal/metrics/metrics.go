// Package metrics exposes the Prometheus collectors for the alert sweep and
// the alert sink.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carehome"

type Metrics struct {
	SweepRuns         *prometheus.CounterVec
	SweepSkipped      *prometheus.CounterVec
	SweepDuration     *prometheus.HistogramVec
	ResidentsScanned  *prometheus.CounterVec
	EvaluatorErrors   *prometheus.CounterVec
	AlertsCreated     *prometheus.CounterVec
	AlertsDuplicate   *prometheus.CounterVec
	NotifyErrors      *prometheus.CounterVec
	LastSweepUnixTime *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Completed sweep passes by job.",
		}, []string{"job"}),
		SweepSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_total",
			Help:      "Sweep passes skipped because another pass held the job lock.",
		}, []string{"job"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of sweep passes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		ResidentsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_residents_total",
			Help:      "Residents evaluated by sweep passes.",
		}, []string{"job"}),
		EvaluatorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_evaluator_errors_total",
			Help:      "Evaluator failures, including recovered panics.",
		}, []string{"evaluator"}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts inserted by the sink.",
		}, []string{"type", "severity"}),
		AlertsDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_duplicate_total",
			Help:      "Candidates dropped because an open alert already covered the period.",
		}, []string{"type"}),
		NotifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Failed alert deliveries by notifier.",
		}, []string{"notifier"}),
		LastSweepUnixTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed pass by job.",
		}, []string{"job"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SweepRuns,
			m.SweepSkipped,
			m.SweepDuration,
			m.ResidentsScanned,
			m.EvaluatorErrors,
			m.AlertsCreated,
			m.AlertsDuplicate,
			m.NotifyErrors,
			m.LastSweepUnixTime,
		)
	}
	return m
}
