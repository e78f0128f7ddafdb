// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package config

import "fmt"

// Validate checks the loaded configuration for internally-inconsistent or
// out-of-range values that would otherwise surface as confusing failures
// deep in a job or handler.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Collector.SnapshotIntervalMinutes <= 0 {
		return fmt.Errorf("collector.snapshot_interval_minutes must be positive, got %d", c.Collector.SnapshotIntervalMinutes)
	}
	if c.Collector.WorkerPoolSize <= 0 {
		return fmt.Errorf("collector.worker_pool_size must be positive, got %d", c.Collector.WorkerPoolSize)
	}
	if c.Collector.OpenHeuristicThreshold < 0 || c.Collector.OpenHeuristicThreshold > 1 {
		return fmt.Errorf("collector.open_heuristic_threshold must be in 0-1, got %f", c.Collector.OpenHeuristicThreshold)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be positive, got %d", c.Import.BatchSize)
	}
	if c.Import.CheckpointInterval <= 0 {
		return fmt.Errorf("import.checkpoint_interval must be positive, got %d", c.Import.CheckpointInterval)
	}
	if c.Query.LiveWindowHours <= 0 {
		return fmt.Errorf("query.live_window_hours must be positive, got %d", c.Query.LiveWindowHours)
	}
	if !c.UpstreamA.Enabled && !c.UpstreamB.Enabled {
		return fmt.Errorf("at least one of upstream_a or upstream_b must be enabled")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret must be set (JWT_SECRET env var)")
	}
	return nil
}
