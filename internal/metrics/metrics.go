// Package metrics provides Prometheus instrumentation for engine invocations,
// stage cache behaviour, and collection outcomes.
//
// Metric categories:
//   - Engine: invocations by operation and outcome, invocation latency
//   - Stages: cache hits and per-stage outcomes
//   - Collections: terminal state counts per run
//   - Scoring: records emitted, filtered, and malformed
//
// The CLI runs one batch and exits, so metrics are exported through a
// node_exporter textfile rather than an HTTP endpoint.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imgsim"

// Engine invocation outcomes.
const (
	EngineOK          = "ok"
	EngineNonZeroExit = "nonzero_exit"
	EngineLaunchError = "launch_error"
	EngineBreakerOpen = "breaker_open"
	EngineCancelled   = "cancelled"
	EngineTimeout     = "timeout"
)

var (
	// EngineInvocationsTotal counts engine processes by operation and outcome.
	EngineInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_invocations_total",
			Help:      "Total number of external engine invocations",
		},
		[]string{"operation", "outcome"},
	)

	// EngineDuration tracks wall time of engine processes.
	EngineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_duration_seconds",
			Help:      "Duration of external engine invocations in seconds",
			// Feature extraction over large collections runs for minutes.
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"operation"},
	)

	// CacheHitsTotal counts stages skipped because their artifact already exists.
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of stage runs satisfied by an existing artifact",
		},
		[]string{"stage"},
	)

	// StageOutcomesTotal counts stage results per collection.
	StageOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcomes_total",
			Help:      "Total number of stage outcomes by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// CollectionsTotal counts collections by terminal state.
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Total number of collections processed by terminal state",
		},
		[]string{"state"},
	)

	// ScoreRecordsTotal counts parsed trace lines by result.
	ScoreRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_records_total",
			Help:      "Total number of match trace lines by parse result",
		},
		[]string{"result"},
	)
)

// RecordEngineInvocation records one engine process and its duration.
func RecordEngineInvocation(operation, outcome string, duration time.Duration) {
	EngineInvocationsTotal.WithLabelValues(operation, outcome).Inc()
	if duration > 0 {
		EngineDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCacheHit records a stage skipped on its cache signal.
func RecordCacheHit(stage string) {
	CacheHitsTotal.WithLabelValues(stage).Inc()
}

// RecordStageOutcome records the outcome of one stage for one collection.
func RecordStageOutcome(stage, outcome string) {
	StageOutcomesTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordCollection records a collection reaching a terminal state.
func RecordCollection(state string) {
	CollectionsTotal.WithLabelValues(state).Inc()
}

// RecordScoreRecords records the result of parsing one match trace.
func RecordScoreRecords(emitted, filtered, malformed int) {
	ScoreRecordsTotal.WithLabelValues("emitted").Add(float64(emitted))
	ScoreRecordsTotal.WithLabelValues("filtered").Add(float64(filtered))
	ScoreRecordsTotal.WithLabelValues("malformed").Add(float64(malformed))
}

// WriteTextfile exports the default registry in the node_exporter textfile
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
