// Package metrics provides Prometheus metrics for filter test runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Exploration metrics
	OptionQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_option_queries_total",
			Help: "Total number of option set queries issued against filter controls",
		},
		[]string{"target", "dimension"},
	)

	OptionsDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_options_discovered_total",
			Help: "Total number of distinct options discovered per dimension",
		},
		[]string{"target", "dimension"},
	)

	ChainsDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_chains_discovered_total",
			Help: "Total number of complete filter chains discovered",
		},
		[]string{"target"},
	)

	SelectionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_selection_failures_total",
			Help: "Total number of rejected filter selections",
		},
		[]string{"target", "phase"},
	)

	// Collection metrics
	PagesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_pages_read_total",
			Help: "Total number of result pages read",
		},
		[]string{"target", "strategy", "status"},
	)

	RecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_records_collected_total",
			Help: "Total number of unique records collected",
		},
		[]string{"target", "strategy"},
	)

	CollectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filtercheck_collection_duration_seconds",
			Help:    "Time taken to collect the result set of one chain",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"target", "strategy"},
	)

	// Verification metrics
	ChainsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_chains_verified_total",
			Help: "Total number of chains verified, by outcome",
		},
		[]string{"target", "result"},
	)

	InvalidRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_invalid_records_total",
			Help: "Total number of records that violated the applied filter chain",
		},
		[]string{"target"},
	)

	// Driver metrics
	DriverCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filtercheck_driver_calls_total",
			Help: "Total number of UI driver operations",
		},
		[]string{"target", "operation", "status"},
	)

	DriverCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filtercheck_driver_call_duration_seconds",
			Help:    "Duration of UI driver operations",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"target", "operation"},
	)
)

// RunMetrics records metrics for one target application
type RunMetrics struct {
	target string
}

// NewRunMetrics creates a new metrics recorder for a target
func NewRunMetrics(target string) *RunMetrics {
	return &RunMetrics{target: target}
}

func (m *RunMetrics) RecordOptionQuery(dimension string, options int) {
	OptionQueriesTotal.WithLabelValues(m.target, dimension).Inc()
	OptionsDiscovered.WithLabelValues(m.target, dimension).Add(float64(options))
}

func (m *RunMetrics) RecordChainDiscovered() {
	ChainsDiscovered.WithLabelValues(m.target).Inc()
}

// RecordSelectionFailure records a rejected selection during a phase
// ("explore" or "apply")
func (m *RunMetrics) RecordSelectionFailure(phase string) {
	SelectionFailures.WithLabelValues(m.target, phase).Inc()
}

func (m *RunMetrics) RecordPageRead(strategy string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	PagesRead.WithLabelValues(m.target, strategy, status).Inc()
}

func (m *RunMetrics) RecordCollection(strategy string, records int, duration time.Duration) {
	RecordsCollected.WithLabelValues(m.target, strategy).Add(float64(records))
	CollectionDuration.WithLabelValues(m.target, strategy).Observe(duration.Seconds())
}

func (m *RunMetrics) RecordVerification(passed bool, invalid int) {
	result := "passed"
	if !passed {
		result = "failed"
	}
	ChainsVerified.WithLabelValues(m.target, result).Inc()
	InvalidRecords.WithLabelValues(m.target).Add(float64(invalid))
}

func (m *RunMetrics) RecordDriverCall(operation string, ok bool, duration time.Duration) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	DriverCallsTotal.WithLabelValues(m.target, operation, status).Inc()
	DriverCallDuration.WithLabelValues(m.target, operation).Observe(duration.Seconds())
}

// WriteTextfile dumps the default registry in the node exporter textfile format
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
