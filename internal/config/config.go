// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package config

import "time"

// Config is the root configuration object, assembled by LoadWithKoanf from
// defaults, an optional YAML file, and environment variables, in that
// order of increasing priority.
type Config struct {
	UpstreamA UpstreamAConfig `koanf:"upstream_a"`
	UpstreamB UpstreamBConfig `koanf:"upstream_b"`
	Database  DatabaseConfig  `koanf:"database"`
	Collector CollectorConfig `koanf:"collector"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Rankings  RankingsConfig  `koanf:"rankings"`
	Query     QueryConfig     `koanf:"query"`
	Import    ImportConfig    `koanf:"import"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// UpstreamAConfig configures source A: park-grouped JSON with company
// ownership metadata (§4.1).
type UpstreamAConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	RequestTimeout time.Duration `koanf:"request_timeout"` // default ~30s (§5)
	ParkBudget     time.Duration `koanf:"park_budget"`     // default ~120s (§5)
}

// UpstreamBConfig configures source B: entity-level documents plus
// historical per-day gzip archive streams (§4.1).
type UpstreamBConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	ParkBudget     time.Duration `koanf:"park_budget"`
	ArchiveBucket  string        `koanf:"archive_bucket"`
}

// DatabaseConfig holds DuckDB connection and performance tuning.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
	ExtensionDir           string `koanf:"extension_dir"`
}

// CollectorConfig holds collection cadence and failure-budget settings.
type CollectorConfig struct {
	SnapshotIntervalMinutes int           `koanf:"snapshot_interval_minutes"` // default 10
	WorkerPoolSize          int           `koanf:"worker_pool_size"`
	OpenHeuristicThreshold  float64       `koanf:"open_heuristic_threshold"` // fraction of rides open, default 0.5
	FilterCountry           string        `koanf:"filter_country"`
	AutoCreateEntities      bool          `koanf:"auto_create_entities"`
	RetryMaxAttempts        int           `koanf:"retry_max_attempts"`
	RetryInitialInterval    time.Duration `koanf:"retry_initial_interval"`
	OverridesCSVPath        string        `koanf:"overrides_csv_path"`   // optional manual tier override table (§4.3 step 1)
	ClassifierCachePath     string        `koanf:"classifier_cache_path"` // optional persisted ride->tier cache (§4.3 step 2)
}

// AggregatorConfig holds hourly/daily/weekly rollup scheduling.
type AggregatorConfig struct {
	HourlyIntervalMinutes int `koanf:"hourly_interval_minutes"`
	DailyHourLocal        int `koanf:"daily_hour_local"` // hour-of-day (park-local) the daily job runs after
	WeeklyDayLocal        int `koanf:"weekly_day_local"` // ISO weekday the weekly job runs on
}

// RankingsConfig holds live-rankings materializer cadence.
type RankingsConfig struct {
	IntervalMinutes  int           `koanf:"interval_minutes"`
	DormantThreshold time.Duration `koanf:"dormant_threshold"` // default 7 * 24h (§3)
}

// QueryConfig holds query-layer cache and hybrid-TODAY behavior.
type QueryConfig struct {
	UseHourlyTables bool          `koanf:"use_hourly_tables"` // toggles hybrid TODAY (§6)
	LiveWindowHours int           `koanf:"live_window_hours"` // default 2
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheSize       int           `koanf:"cache_size"`
}

// ImportConfig holds archive importer batching and checkpointing.
type ImportConfig struct {
	BatchSize          int    `koanf:"batch_size"`
	CheckpointInterval int    `koanf:"checkpoint_interval"`  // batches between checkpoint persists
	CheckpointDBPath   string `koanf:"checkpoint_db_path"`   // badger directory
	Targets            []ImportTargetConfig `koanf:"targets"` // destinations the archive backfill knows how to resume
}

// ImportTargetConfig names one source-B archive destination and the
// internal park it backfills into, config-file only (no single environment
// variable can express a list of structs, so this is read from the YAML
// layer alone).
type ImportTargetConfig struct {
	DestinationID string `koanf:"destination_id"`
	ParkID        string `koanf:"park_id"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// SecurityConfig holds admin-surface auth and CORS settings.
type SecurityConfig struct {
	// AuthMode selects how the import-admin API authenticates requests:
	// "none", "basic", "jwt", or "multi" (JWT then Basic).
	AuthMode            string        `koanf:"auth_mode"`
	JWTSecret           string        `koanf:"jwt_secret"`
	JWTIssuer           string        `koanf:"jwt_issuer"`
	// SessionTimeout is how long an issued JWT remains valid (default 24h).
	SessionTimeout      time.Duration `koanf:"session_timeout"`
	BasicAuthUsername   string        `koanf:"basic_auth_username"`
	BasicAuthPassword   string        `koanf:"basic_auth_password"`
	CORSOrigins         []string      `koanf:"cors_origins"`
	TrustedProxies      []string      `koanf:"trusted_proxies"`
	RateLimitPerMin     int           `koanf:"rate_limit_per_min"`
	RateLimitDisabled   bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds structured-logging output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug|info|warn|error
	Format string `koanf:"format"` // json|console
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config populated with sensible defaults, applied
// first and overridden by any config file and then environment variables.
func defaultConfig() *Config {
	return &Config{
		UpstreamA: UpstreamAConfig{
			Enabled:        true,
			RequestTimeout: 30 * time.Second,
			ParkBudget:     120 * time.Second,
		},
		UpstreamB: UpstreamBConfig{
			Enabled:        true,
			RequestTimeout: 30 * time.Second,
			ParkBudget:     120 * time.Second,
		},
		Database: DatabaseConfig{
			Path:                   "/data/parkwatch.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Collector: CollectorConfig{
			SnapshotIntervalMinutes: 10,
			WorkerPoolSize:          8,
			OpenHeuristicThreshold:  0.5,
			AutoCreateEntities:      true,
			RetryMaxAttempts:        5,
			RetryInitialInterval:    500 * time.Millisecond,
		},
		Aggregator: AggregatorConfig{
			HourlyIntervalMinutes: 60,
			DailyHourLocal:        1,
			WeeklyDayLocal:        1, // Monday
		},
		Rankings: RankingsConfig{
			IntervalMinutes:  5,
			DormantThreshold: 7 * 24 * time.Hour,
		},
		Query: QueryConfig{
			UseHourlyTables: true,
			LiveWindowHours: 2,
			CacheTTL:        30 * time.Second,
			CacheSize:       1024,
		},
		Import: ImportConfig{
			BatchSize:          500,
			CheckpointInterval: 10,
			CheckpointDBPath:   "/data/parkwatch-import-checkpoints",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8420,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTIssuer:       "parkwatch",
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitPerMin: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
