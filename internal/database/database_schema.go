// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
database_schema.go - Database Schema Management

This file manages the DuckDB database schema including table creation
and index management for optimal query performance.

Tables:
  - parks, rides, ride_classifications: reference data for tracked parks and
    attractions
  - ride_status_snapshots, park_activity_snapshots: raw per-collection-cycle
    fact tables written by the collector and the archive importer
  - ride_hourly_stats, park_hourly_stats: hourly rollups derived from raw
    snapshots
  - ride_daily_stats, park_daily_stats: daily rollups derived from hourly
    rollups
  - ride_weekly_stats, park_weekly_stats: weekly rollups derived from daily
    rollups
  - park_live_rankings, ride_live_rankings (plus _staging twins): the
    materialized leaderboards served by the public ranking API, replaced
    wholesale by the rankings materializer's staging-swap
  - import_checkpoints, data_quality_log: archive-import state and
    recoverable data-quality issues
  - aggregation_log: the safe-cleanup barrier consulted by retention and by
    each rollup stage before it runs
  - storage_metrics: periodic per-table footprint samples

Schema Strategy (Pre-Release):
All columns are defined in the initial CREATE TABLE statement. This provides:
  - Single source of truth for the complete schema
  - Faster startup (no migrations to run)
  - Cleaner codebase

Post-Release Migration Strategy:
After the first public release with real users, use versioned migrations in
migrations.go to add new columns without losing existing data.

Partitioning:
ride_status_snapshots and park_activity_snapshots are not physically
partitioned by month. recorded_at is a plain TIMESTAMP column and every query
against these tables filters with a recorded_at range predicate (never
DATE()/YEAR(), which would defeat DuckDB's zonemap min/max pruning per block).
A single table with range-predicate pruning is simpler to operate than
physical monthly child tables and gives the same scan-avoidance benefit.

Index Strategy:
Indexes are created for:
  - Frequently filtered columns (park_id, ride_id, recorded_at, period)
  - Composite indexes matching the live-rankings and hybrid-today query shapes
  - Checkpoint and quality-log lookups by destination/import id
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := db.getTableCreationQueries()

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func (db *DB) getTableCreationQueries() []string {
	return []string{
		// ============================================
		// Reference data
		// ============================================
		`CREATE TABLE IF NOT EXISTS parks (
			id TEXT PRIMARY KEY,
			external_ids TEXT NOT NULL DEFAULT '[]', -- JSON array, see internal/models.Park
			name TEXT NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			timezone TEXT NOT NULL,
			is_disney BOOLEAN NOT NULL DEFAULT false,
			is_universal BOOLEAN NOT NULL DEFAULT false,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS rides (
			id TEXT PRIMARY KEY,
			external_ids TEXT NOT NULL DEFAULT '[]',
			park_id TEXT NOT NULL REFERENCES parks(id),
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 2,
			last_operated_at TIMESTAMP,
			active BOOLEAN NOT NULL DEFAULT true,
			queue_times_url TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS ride_classifications (
			ride_id TEXT PRIMARY KEY REFERENCES rides(id),
			park_id TEXT NOT NULL,
			tier INTEGER NOT NULL,
			tier_weight INTEGER NOT NULL,
			method TEXT NOT NULL,
			confidence DOUBLE NOT NULL,
			reasoning TEXT,
			sources TEXT NOT NULL DEFAULT '[]', -- JSON array, queried with json_extract
			classified_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// ============================================
		// Raw fact tables, one row per ride/park per collection cycle
		// ============================================
		`CREATE TABLE IF NOT EXISTS ride_status_snapshots (
			ride_id TEXT NOT NULL REFERENCES rides(id),
			park_id TEXT NOT NULL REFERENCES parks(id),
			recorded_at TIMESTAMP NOT NULL,
			status TEXT,
			computed_is_open BOOLEAN NOT NULL DEFAULT false,
			wait_time_minutes INTEGER,
			data_source TEXT NOT NULL DEFAULT 'LIVE',
			PRIMARY KEY (ride_id, recorded_at)
		);`,

		`CREATE TABLE IF NOT EXISTS park_activity_snapshots (
			park_id TEXT NOT NULL REFERENCES parks(id),
			recorded_at TIMESTAMP NOT NULL,
			rides_tracked INTEGER NOT NULL DEFAULT 0,
			rides_open INTEGER NOT NULL DEFAULT 0,
			rides_closed INTEGER NOT NULL DEFAULT 0,
			avg_wait_time DOUBLE,
			max_wait_time INTEGER,
			park_appears_open BOOLEAN NOT NULL DEFAULT false,
			shame_score DOUBLE,
			PRIMARY KEY (park_id, recorded_at)
		);`,

		// ============================================
		// Hourly rollups, derived from raw snapshots only
		// ============================================
		`CREATE TABLE IF NOT EXISTS ride_hourly_stats (
			ride_id TEXT NOT NULL REFERENCES rides(id),
			park_id TEXT NOT NULL,
			hour_start_utc TIMESTAMP NOT NULL,
			operating_snapshots INTEGER NOT NULL DEFAULT 0,
			down_snapshots INTEGER NOT NULL DEFAULT 0,
			downtime_hours DOUBLE NOT NULL DEFAULT 0,
			weighted_downtime_hours DOUBLE NOT NULL DEFAULT 0,
			effective_weight INTEGER NOT NULL DEFAULT 2,
			ride_operated BOOLEAN NOT NULL DEFAULT false,
			snapshot_count INTEGER NOT NULL DEFAULT 0,
			uptime_percentage DOUBLE NOT NULL DEFAULT 0,
			status_changes INTEGER NOT NULL DEFAULT 0,
			longest_downtime_minutes INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ride_id, hour_start_utc)
		);`,

		`CREATE TABLE IF NOT EXISTS park_hourly_stats (
			park_id TEXT NOT NULL REFERENCES parks(id),
			hour_start_utc TIMESTAMP NOT NULL,
			avg_shame_score DOUBLE,
			avg_wait_time DOUBLE,
			max_wait_time INTEGER,
			park_was_open BOOLEAN NOT NULL DEFAULT false,
			snapshot_count INTEGER NOT NULL DEFAULT 0,
			total_downtime_hours DOUBLE NOT NULL DEFAULT 0,
			rides_down INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (park_id, hour_start_utc)
		);`,

		// ============================================
		// Daily rollups, derived from hourly rollups only (park-local calendar day)
		// ============================================
		`CREATE TABLE IF NOT EXISTS ride_daily_stats (
			ride_id TEXT NOT NULL REFERENCES rides(id),
			park_id TEXT NOT NULL,
			stat_date TEXT NOT NULL, -- YYYY-MM-DD, park-local
			uptime_minutes INTEGER NOT NULL DEFAULT 0,
			downtime_minutes INTEGER NOT NULL DEFAULT 0,
			operating_hours_minutes INTEGER NOT NULL DEFAULT 0,
			avg_wait_time DOUBLE,
			min_wait_time INTEGER,
			max_wait_time INTEGER,
			peak_wait_time INTEGER,
			status_changes INTEGER NOT NULL DEFAULT 0,
			longest_downtime_minutes INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ride_id, stat_date)
		);`,

		`CREATE TABLE IF NOT EXISTS park_daily_stats (
			park_id TEXT NOT NULL REFERENCES parks(id),
			stat_date TEXT NOT NULL,
			avg_shame_score DOUBLE,
			avg_wait_time DOUBLE,
			max_wait_time INTEGER,
			total_downtime_hours DOUBLE NOT NULL DEFAULT 0,
			rides_reporting INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (park_id, stat_date)
		);`,

		// ============================================
		// Weekly rollups, derived from daily rollups only (ISO week, park-local)
		// ============================================
		`CREATE TABLE IF NOT EXISTS ride_weekly_stats (
			ride_id TEXT NOT NULL REFERENCES rides(id),
			park_id TEXT NOT NULL,
			iso_year INTEGER NOT NULL,
			iso_week INTEGER NOT NULL,
			week_start_date TEXT NOT NULL, -- Monday, park-local
			uptime_minutes INTEGER NOT NULL DEFAULT 0,
			downtime_minutes INTEGER NOT NULL DEFAULT 0,
			operating_hours_minutes INTEGER NOT NULL DEFAULT 0,
			avg_wait_time DOUBLE,
			peak_wait_time INTEGER,
			status_changes INTEGER NOT NULL DEFAULT 0,
			trend_vs_previous_week DOUBLE,
			days_present INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ride_id, iso_year, iso_week)
		);`,

		`CREATE TABLE IF NOT EXISTS park_weekly_stats (
			park_id TEXT NOT NULL REFERENCES parks(id),
			iso_year INTEGER NOT NULL,
			iso_week INTEGER NOT NULL,
			week_start_date TEXT NOT NULL,
			avg_shame_score DOUBLE,
			total_downtime_hours DOUBLE NOT NULL DEFAULT 0,
			trend_vs_previous_week DOUBLE,
			PRIMARY KEY (park_id, iso_year, iso_week)
		);`,

		// ============================================
		// Materialized live rankings, replaced wholesale by the staging swap.
		// Each has a _staging twin of identical shape that the materializer
		// writes into before the atomic rename (see rankings_materializer.go).
		// ============================================
		`CREATE TABLE IF NOT EXISTS park_live_rankings (
			park_id TEXT NOT NULL,
			park_name TEXT NOT NULL,
			period TEXT NOT NULL,
			rank INTEGER NOT NULL,
			shame_score DOUBLE NOT NULL,
			rides_down INTEGER NOT NULL DEFAULT 0,
			rides_tracked INTEGER NOT NULL DEFAULT 0,
			materialized_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (period, rank)
		);`,

		`CREATE TABLE IF NOT EXISTS park_live_rankings_staging (
			park_id TEXT NOT NULL,
			park_name TEXT NOT NULL,
			period TEXT NOT NULL,
			rank INTEGER NOT NULL,
			shame_score DOUBLE NOT NULL,
			rides_down INTEGER NOT NULL DEFAULT 0,
			rides_tracked INTEGER NOT NULL DEFAULT 0,
			materialized_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (period, rank)
		);`,

		`CREATE TABLE IF NOT EXISTS ride_live_rankings (
			ride_id TEXT NOT NULL,
			ride_name TEXT NOT NULL,
			park_id TEXT NOT NULL,
			period TEXT NOT NULL,
			rank INTEGER NOT NULL,
			weighted_downtime_hours DOUBLE NOT NULL,
			downtime_hours DOUBLE NOT NULL,
			tier INTEGER NOT NULL,
			materialized_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (period, rank)
		);`,

		`CREATE TABLE IF NOT EXISTS ride_live_rankings_staging (
			ride_id TEXT NOT NULL,
			ride_name TEXT NOT NULL,
			park_id TEXT NOT NULL,
			period TEXT NOT NULL,
			rank INTEGER NOT NULL,
			weighted_downtime_hours DOUBLE NOT NULL,
			downtime_hours DOUBLE NOT NULL,
			tier INTEGER NOT NULL,
			materialized_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (period, rank)
		);`,

		// ============================================
		// Archive import state and recoverable data-quality issues
		// ============================================
		`CREATE TABLE IF NOT EXISTS import_checkpoints (
			id TEXT PRIMARY KEY,
			destination_id TEXT NOT NULL,
			status TEXT NOT NULL,
			last_processed_date TIMESTAMP,
			last_processed_file TEXT,
			records_imported BIGINT NOT NULL DEFAULT 0,
			errors_encountered BIGINT NOT NULL DEFAULT 0,
			start_date TIMESTAMP,
			end_date TIMESTAMP,
			failure_reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS data_quality_log (
			id BIGINT PRIMARY KEY,
			import_id TEXT,
			issue_type TEXT NOT NULL,
			entity_type TEXT,
			external_id TEXT,
			description TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE SEQUENCE IF NOT EXISTS data_quality_log_id_seq;`,

		// ============================================
		// Safe-cleanup barrier: one row per (aggregation_date, aggregation_type)
		// ============================================
		`CREATE TABLE IF NOT EXISTS aggregation_log (
			aggregation_date TEXT NOT NULL,
			aggregation_type TEXT NOT NULL,
			status TEXT NOT NULL,
			rows_written BIGINT NOT NULL DEFAULT 0,
			error_message TEXT,
			started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			finished_at TIMESTAMP,
			PRIMARY KEY (aggregation_date, aggregation_type)
		);`,

		// ============================================
		// Periodic storage footprint samples
		// ============================================
		`CREATE TABLE IF NOT EXISTS storage_metrics (
			table_name TEXT NOT NULL,
			row_count BIGINT NOT NULL DEFAULT 0,
			data_size_bytes BIGINT NOT NULL DEFAULT 0,
			index_size_bytes BIGINT NOT NULL DEFAULT 0,
			growth_rows_per_day DOUBLE NOT NULL DEFAULT 0,
			sampled_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (table_name, sampled_at)
		);`,
	}
}

// createIndexes creates the secondary indexes used by the rankings and
// query layers
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}

// CreateIndexes is the exported form used by the CLI schema-repair command.
func (db *DB) CreateIndexes() error {
	return db.createIndexes()
}

func (db *DB) getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_rides_park_id ON rides(park_id);`,
		`CREATE INDEX IF NOT EXISTS idx_rides_active ON rides(active);`,

		`CREATE INDEX IF NOT EXISTS idx_snapshot_park_recorded ON ride_status_snapshots(park_id, recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_recorded_at ON ride_status_snapshots(recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_park_activity_recorded_at ON park_activity_snapshots(recorded_at);`,

		`CREATE INDEX IF NOT EXISTS idx_ride_hourly_park ON ride_hourly_stats(park_id, hour_start_utc);`,
		`CREATE INDEX IF NOT EXISTS idx_park_hourly_hour ON park_hourly_stats(hour_start_utc);`,

		`CREATE INDEX IF NOT EXISTS idx_ride_daily_park ON ride_daily_stats(park_id, stat_date);`,
		`CREATE INDEX IF NOT EXISTS idx_park_daily_date ON park_daily_stats(stat_date);`,

		`CREATE INDEX IF NOT EXISTS idx_ride_weekly_park ON ride_weekly_stats(park_id, iso_year, iso_week);`,
		`CREATE INDEX IF NOT EXISTS idx_park_weekly_week ON park_weekly_stats(iso_year, iso_week);`,

		`CREATE INDEX IF NOT EXISTS idx_park_rankings_period ON park_live_rankings(period);`,
		`CREATE INDEX IF NOT EXISTS idx_ride_rankings_period_park ON ride_live_rankings(period, park_id);`,

		`CREATE INDEX IF NOT EXISTS idx_import_checkpoints_destination ON import_checkpoints(destination_id);`,
		`CREATE INDEX IF NOT EXISTS idx_import_checkpoints_status ON import_checkpoints(status);`,

		`CREATE INDEX IF NOT EXISTS idx_quality_log_import ON data_quality_log(import_id);`,
		`CREATE INDEX IF NOT EXISTS idx_quality_log_timestamp ON data_quality_log(timestamp DESC);`,

		`CREATE INDEX IF NOT EXISTS idx_storage_metrics_sampled ON storage_metrics(sampled_at DESC);`,
	}
}
