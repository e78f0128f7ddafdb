// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package database provides the data access layer for parkwatch, backed by
// an embedded DuckDB file.
//
// # Overview
//
// This package sits between the application and DuckDB, handling schema
// management, extension installation, connection recovery, and the query
// helpers shared by the sync, aggregation, and API layers.
//
// # Architecture
//
// Core Database Operations:
//   - database.go: Connection lifecycle (open, extension preload, initialize, close)
//   - database_extensions.go: DuckDB extension installation (icu, json, rapidfuzz)
//   - database_extensions_core.go: Table-driven extension install/verify infrastructure
//   - database_schema.go: Table creation and index management
//   - migrations.go: Versioned migration tracking for post-release schema changes
//   - database_connection.go: Connection pool configuration and reconnection classification
//   - database_utils.go: Profiling, context helpers, record counts, checkpoint, backup path
//   - query/builder.go: WHERE-clause builder shared by aggregation and ranking queries
//
// # Database Technology
//
// The package uses DuckDB as an embedded OLAP store:
//   - Columnar storage with zonemap-based range pruning on recorded_at
//   - Window functions and CTEs for rollups and rankings
//   - CGO-based driver (github.com/duckdb/duckdb-go/v2)
//
// # Extensions
//
//   - icu: timezone-aware timestamp conversion, used to derive a park's
//     local calendar day and ISO week boundaries from UTC snapshots
//   - json: structured column storage/extraction, used for Park.ExternalIDs,
//     Ride.ExternalIDs, and RideClassification.Sources
//   - rapidfuzz: fuzzy string matching, used by the entity resolver's
//     name-similarity fallback step when exact and alias matches fail
//
// # Usage
//
//	db, err := database.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	snapshots, checkpoints, err := db.GetRecordCounts(ctx)
//
// # Concurrency
//
// All exported methods are safe for concurrent use. Reconnection on
// transient connection errors is handled internally; prepared statements
// are cached and reused across goroutines behind a mutex.
//
// # Schema Strategy
//
// Pre-release, every column lives in the initial CREATE TABLE statements in
// database_schema.go. Post-release, new columns should be added as versioned
// entries in migrations.go rather than by editing the initial schema.
package database
