// Package metrics provides Prometheus metrics for the buildcfg subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// EvaluationTotal counts finished evaluation passes by result.
	EvaluationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcfg_evaluation_total",
		Help: "Total number of configuration evaluation passes, by result (success/invalid).",
	}, []string{"result"})

	// EvaluationDuration observes the wall time of evaluation passes.
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "buildcfg_evaluation_duration_seconds",
		Help:    "Duration of configuration evaluation passes.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// ValidationFailureTotal counts failed validity checks by field.
	ValidationFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcfg_validation_failure_total",
		Help: "Total number of rejected configuration values, by field.",
	}, []string{"field"})

	// SnapshotTimestamp tracks the creation time of the current snapshot.
	SnapshotTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buildcfg_snapshot_created_timestamp_seconds",
		Help: "Unix timestamp of the most recent evaluation snapshot.",
	})
)

// RecordEvaluation increments the evaluation counter and observes duration.
func RecordEvaluation(result string, seconds float64) {
	EvaluationTotal.WithLabelValues(result).Inc()
	EvaluationDuration.Observe(seconds)
}

// RecordValidationFailure increments the validation failure counter.
func RecordValidationFailure(field string) {
	ValidationFailureTotal.WithLabelValues(field).Inc()
}

// SetSnapshotTimestamp sets the snapshot timestamp gauge.
func SetSnapshotTimestamp(unixSeconds float64) {
	SnapshotTimestamp.Set(unixSeconds)
}

// GetEvaluationTotal returns the current counter value for a result (for testing).
func GetEvaluationTotal(result string) float64 {
	var m dto.Metric
	if err := EvaluationTotal.WithLabelValues(result).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
