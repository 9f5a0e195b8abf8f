package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion scheduler metrics
	IngestCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cspmfeed_ingest_cycles_total",
			Help: "Total number of fetch-and-merge cycles executed",
		},
	)

	IngestCycleErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cspmfeed_ingest_cycle_errors_total",
			Help: "Total number of fetch-and-merge cycles that failed",
		},
	)

	IngestRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cspmfeed_ingest_running",
			Help: "Whether the ingestion scheduler is running (1) or idle (0)",
		},
	)

	// Record handling metrics
	RecordsReplacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cspmfeed_records_replaced_total",
			Help: "Total number of records applied to the resident page",
		},
	)

	RecordsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cspmfeed_records_dropped_total",
			Help: "Total number of malformed records dropped from fetched pages",
		},
	)

	// Stats refresh metrics
	StatsRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cspmfeed_stats_refresh_total",
			Help: "Total number of aggregate statistics refreshes",
		},
		[]string{"status"},
	)
)
