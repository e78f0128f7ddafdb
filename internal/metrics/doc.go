// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package instruments:
  - API request latency and throughput
  - DuckDB query performance
  - Collector (upstream polling) cycle outcomes
  - Entity resolution method mix (exact/alias/fuzzy/created)
  - Circuit breaker state transitions for upstream clients
  - Archive import progress and checkpoint age
  - Aggregation run duration and rows written per rollup type
  - Live rankings materialization cycles
  - Query-result cache hit/miss rates
  - Data quality issue counts by type

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Usage

Record helpers wrap the raw prometheus vectors so callers don't need to know
label order:

	start := time.Now()
	err := collectRideStatuses(ctx, source)
	metrics.RecordCollectorCycle(source, time.Since(start), written, err)

# Design Notes

Error labels are bucketed through classifyError into a small fixed set
(timeout, circuit_open, database, canceled, other) rather than using the raw
error string, to keep Prometheus label cardinality bounded.
*/
package metrics
