// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package instruments:
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Collector and archive-import operations
// - Aggregation and rankings-materializer runs
// - Circuit breaker state for upstream clients
// - Query-result cache efficiency

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being handled",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Collector Metrics (upstream polling cycle)
	CollectorCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_cycle_duration_seconds",
			Help:    "Duration of a single collection cycle in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	CollectorSnapshotsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_snapshots_written_total",
			Help: "Total number of ride/park status snapshots written",
		},
		[]string{"source"},
	)

	CollectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_errors_total",
			Help: "Total number of collection cycle errors",
		},
		[]string{"source", "error_type"},
	)

	CollectorLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "collector_last_success_timestamp",
			Help: "Unix timestamp of the last successful collection cycle",
		},
		[]string{"source"},
	)

	// Entity resolution metrics
	EntityResolutionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_resolution_total",
			Help: "Total number of entity resolution attempts by outcome",
		},
		[]string{"entity_type", "method"}, // method: exact, alias, fuzzy, created
	)

	// Circuit breaker metrics, one series per upstream client
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"upstream"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"upstream", "from", "to"},
	)

	// Archive import metrics
	ImportRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_records_processed_total",
			Help: "Total number of archive records processed",
		},
		[]string{"destination_id"},
	)

	ImportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_errors_total",
			Help: "Total number of archive import errors",
		},
		[]string{"destination_id", "error_type"},
	)

	ImportCheckpointAge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "import_checkpoint_age_seconds",
			Help: "Age in seconds of the last persisted checkpoint for a destination",
		},
		[]string{"destination_id"},
	)

	// Aggregation and rankings metrics
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of a rollup aggregation run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"aggregation_type"},
	)

	AggregationRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_rows_written_total",
			Help: "Total number of rows written by aggregation runs",
		},
		[]string{"aggregation_type"},
	)

	AggregationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_failures_total",
			Help: "Total number of failed aggregation runs",
		},
		[]string{"aggregation_type"},
	)

	RankingsMaterializationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rankings_materialization_duration_seconds",
			Help:    "Duration of a live rankings staging-swap cycle in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	RankingsVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rankings_version",
			Help: "Monotonically increasing counter bumped on each rankings staging swap",
		},
	)

	// Query cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of entries in the cache",
		},
		[]string{"cache"},
	)

	// Data quality metrics
	DataQualityIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_quality_issues_total",
			Help: "Total number of data quality issues recorded",
		},
		[]string{"issue_type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCollectorCycle records the outcome of a single collection cycle.
func RecordCollectorCycle(source string, duration time.Duration, snapshotsWritten int, err error) {
	CollectorCycleDuration.WithLabelValues(source).Observe(duration.Seconds())
	CollectorSnapshotsWritten.WithLabelValues(source).Add(float64(snapshotsWritten))
	if err != nil {
		CollectorErrors.WithLabelValues(source, classifyError(err)).Inc()
		return
	}
	CollectorLastSuccess.WithLabelValues(source).Set(float64(time.Now().Unix()))
}

// RecordEntityResolution records how an entity (park or ride) was resolved.
func RecordEntityResolution(entityType, method string) {
	EntityResolutionTotal.WithLabelValues(entityType, method).Inc()
}

// circuitBreakerStateValue maps gobreaker's three states onto a gauge value.
func circuitBreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordCircuitBreakerTransition records a circuit breaker state change.
func RecordCircuitBreakerTransition(upstream, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(upstream, from, to).Inc()
	CircuitBreakerState.WithLabelValues(upstream).Set(circuitBreakerStateValue(to))
}

// RecordImportProgress records archive-import progress for a destination.
func RecordImportProgress(destinationID string, recordsProcessed int64, err error) {
	ImportRecordsProcessed.WithLabelValues(destinationID).Add(float64(recordsProcessed))
	if err != nil {
		ImportErrors.WithLabelValues(destinationID, classifyError(err)).Inc()
	}
}

// SetImportCheckpointAge updates the checkpoint-age gauge for a destination.
func SetImportCheckpointAge(destinationID string, age time.Duration) {
	ImportCheckpointAge.WithLabelValues(destinationID).Set(age.Seconds())
}

// RecordAggregationRun records the outcome of a rollup aggregation run.
func RecordAggregationRun(aggregationType string, duration time.Duration, rowsWritten int64, err error) {
	AggregationDuration.WithLabelValues(aggregationType).Observe(duration.Seconds())
	if err != nil {
		AggregationFailures.WithLabelValues(aggregationType).Inc()
		return
	}
	AggregationRowsWritten.WithLabelValues(aggregationType).Add(float64(rowsWritten))
}

// RecordRankingsMaterialization records a live rankings staging-swap cycle.
func RecordRankingsMaterialization(duration time.Duration, version int64) {
	RankingsMaterializationDuration.Observe(duration.Seconds())
	RankingsVersion.Set(float64(version))
}

// RecordCacheHit records a cache hit for the named cache.
func RecordCacheHit(cache string) {
	CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss for the named cache.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// SetCacheSize sets the current entry count for the named cache.
func SetCacheSize(cache string, size int) {
	CacheSize.WithLabelValues(cache).Set(float64(size))
}

// RecordDataQualityIssue records a data quality issue by type.
func RecordDataQualityIssue(issueType string) {
	DataQualityIssues.WithLabelValues(issueType).Inc()
}

// classifyError buckets an error into a small label cardinality for Prometheus.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	switch {
	case contains(msg, "timeout"), contains(msg, "deadline exceeded"):
		return "timeout"
	case contains(msg, "circuit breaker"):
		return "circuit_open"
	case contains(msg, "database"), contains(msg, "duckdb"):
		return "database"
	case contains(msg, "context canceled"):
		return "canceled"
	default:
		return "other"
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
