// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WatchReloadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcfg_watch_reload_total",
		Help: "Total number of watch-triggered re-evaluations, by result (success/invalid/error).",
	}, []string{"result"})

	WatchEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buildcfg_watch_events_total",
		Help: "Total number of filesystem events observed on watched inputs.",
	})
)

// RecordWatchReload records the outcome of a watch-triggered re-evaluation.
func RecordWatchReload(result string) {
	if result == "" {
		result = "unknown"
	}
	WatchReloadTotal.WithLabelValues(result).Inc()
}

// IncWatchEvent records a single filesystem event on a watched input.
func IncWatchEvent() {
	WatchEventsTotal.Inc()
}
