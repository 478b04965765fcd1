package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_windows_scheduled_total",
			Help: "Total number of time windows scheduled per measurement.",
		},
		[]string{"measurement"},
	)
	windowsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_windows_failed_total",
			Help: "Windows whose row query failed and were skipped, reducing coverage.",
		},
		[]string{"measurement"},
	)
	windowsTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_windows_truncated_total",
			Help: "Windows whose row query returned exactly the row cap and may be truncated.",
		},
		[]string{"measurement"},
	)
	rowsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_rows_fetched_total",
			Help: "Rows retrieved from the store per measurement.",
		},
		[]string{"measurement"},
	)
	gapSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetscan_gap_duration_seconds",
			Help: "Accumulated recording-gap duration for the last run per measurement.",
		},
		[]string{"measurement"},
	)
	effectiveSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetscan_effective_duration_seconds",
			Help: "Effective (gap-adjusted) duration for the last run per measurement.",
		},
		[]string{"measurement"},
	)
)
