// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var CacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "buildcfg_cache_ops_total",
	Help: "Total cache operations by backend, operation, and outcome.",
}, []string{"backend", "op", "outcome"})

// RecordCacheOp counts one cache operation.
func RecordCacheOp(backend, op, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	CacheOpsTotal.WithLabelValues(backend, op, outcome).Inc()
}
