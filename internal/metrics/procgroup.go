// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcTerminateTotal counts termination signals sent to child process
	// groups, by signal and outcome.
	ProcTerminateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildcfg_proc_terminate_total",
			Help: "Termination signals sent to child process groups",
		},
		[]string{"signal", "outcome"},
	)

	// ProcWaitTotal counts child process wait results.
	ProcWaitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildcfg_proc_wait_total",
			Help: "Child process wait results",
		},
		[]string{"outcome"},
	)
)

// IncProcTerminate records one termination signal attempt.
func IncProcTerminate(signal, outcome string) {
	if signal == "" {
		signal = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	ProcTerminateTotal.WithLabelValues(signal, outcome).Inc()
}

// IncProcWait records one child process wait result.
func IncProcWait(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	ProcWaitTotal.WithLabelValues(outcome).Inc()
}
