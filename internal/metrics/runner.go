// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TestRunTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcfg_test_run_total",
		Help: "Total number of test runs dispatched, by target environment and result.",
	}, []string{"environment", "result"})

	TestRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buildcfg_test_run_duration_seconds",
		Help:    "Duration of dispatched test runs, by target environment.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"environment"})
)

// RecordTestRun records a finished test run for the given environment.
func RecordTestRun(environment, result string, seconds float64) {
	if environment == "" {
		environment = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	TestRunTotal.WithLabelValues(environment, result).Inc()
	TestRunDuration.WithLabelValues(environment).Observe(seconds)
}
