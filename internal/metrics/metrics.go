package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CrashesImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashlens_crashes_imported_total",
			Help: "Total crash records successfully stored by import",
		},
		[]string{"source"},
	)

	ImportParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashlens_import_parse_errors_total",
			Help: "Total extract rows skipped due to parse errors",
		},
		[]string{"source"},
	)

	FetchCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashlens_fetch_calls_total",
			Help: "Total crash-extract HTTP downloads",
		},
		[]string{"status"},
	)

	ReportsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashlens_reports_served_total",
			Help: "Total report requests served by kind",
		},
		[]string{"kind"},
	)

	SummaryRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crashlens_summary_refreshes_total",
			Help: "Total condition summary materializations",
		},
	)

	SummaryRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crashlens_summary_rows",
			Help: "Rows in the materialized condition summary",
		},
	)
)
