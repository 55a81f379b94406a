package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ssd_parsing_seconds",
		Help:    "Time spent parsing and assembling a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	FilesCheckedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssd_files_checked_total",
		Help: "Total number of source files checked, by result.",
	}, []string{"result"})

	RoundTripFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssd_round_trip_failures_total",
		Help: "Total number of printer/parser round-trip mismatches.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssd_diagnostics_total",
		Help: "Total number of non-fatal diagnostics reported, by severity.",
	}, []string{"severity"})

	GenerateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ssd_generate_seconds",
		Help:    "Time spent running a generator.",
		Buckets: prometheus.DefBuckets,
	}, []string{"generator"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssd_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ssd_watch_runs_total",
		Help: "Total number of check runs triggered by the watcher.",
	})
)

// Result labels for FilesCheckedTotal.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultRoundTrip = "round_trip"
)
