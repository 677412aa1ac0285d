package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SizeDiffChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildcfg_sizediff_checks_total",
		Help: "Total number of binary size comparisons, by status (pass/fail).",
	}, []string{"status"})

	SizeDiffLargestGrowth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buildcfg_sizediff_largest_growth_bytes",
		Help: "Largest compressed per-package growth seen in the most recent comparison.",
	})
)

// RecordSizeDiff records one finished size comparison.
func RecordSizeDiff(status string, largestGrowthBytes int64) {
	if status == "" {
		status = "unknown"
	}
	SizeDiffChecksTotal.WithLabelValues(status).Inc()
	SizeDiffLargestGrowth.Set(float64(largestGrowthBytes))
}
