// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
Package config provides centralized configuration management for parkwatch.

# Configuration Sources

Configuration is loaded in three layers, lowest to highest priority:

  - Built-in defaults (defaultConfig)
  - An optional YAML file (config.yaml, or CONFIG_PATH)
  - Environment variables

# Configuration Structure

  - UpstreamAConfig / UpstreamBConfig: the two source adapters (§4.1)
  - DatabaseConfig: DuckDB connection and performance tuning
  - CollectorConfig: collection cadence and per-park budgets
  - AggregatorConfig: hourly/daily/weekly rollup scheduling
  - RankingsConfig: live-rankings materializer cadence
  - QueryConfig: query-layer cache TTLs and hybrid-TODAY toggle
  - ImportConfig: archive importer batching and checkpoint interval
  - ServerConfig: HTTP server bind address and timeouts
  - SecurityConfig: admin JWT and CORS settings
  - LoggingConfig: log level, format, caller info
*/
package config
