// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
database_extensions.go - DuckDB Extension Installation

This file handles the installation and loading of DuckDB extensions required for
full functionality of parkwatch.

Required Extensions (installed in every build):
  - icu: Timezone-aware timestamp operations, used for converting a park's local
    day/week boundaries
  - json: JSON data processing and path-based extraction, used for the
    classification Sources column and DataQualityLog.Details
  - rapidfuzz: High-performance fuzzy string matching, used by the entity
    resolver's fuzzy name-match step

All extensions are pre-installed in Docker images and should be installed locally
using ./scripts/setup-duckdb-extensions.sh.

Installation Strategy:
Each extension follows a fallback installation pattern:
 1. Try INSTALL <extension>
 2. If install fails, try LOAD <extension> (may already be installed)
 3. If load fails, try FORCE INSTALL <extension>
 4. If optional=true and all fail, disable feature gracefully

Environment Variables:
  - DUCKDB_EXTENSIONS_OPTIONAL=true: Allow startup without extensions (testing only)
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tomtom215/parkwatch/internal/logging"
)

// Note: Removed sync.Once caching for community extensions.
// CGO calls cannot be interrupted, so the only safe approach is to skip
// loading community extensions that aren't already locally installed.
// The installRapidFuzzIfLocal() function handles this deterministically.

// communityExtensionTimeout is the hard timeout for community extension operations
// CGO calls don't respect context cancellation, so we need goroutine-based timeouts
// Can be overridden via DUCKDB_EXTENSION_TIMEOUT environment variable (e.g., "30s", "1m")
var communityExtensionTimeout = getExtensionTimeout()

// extensionRetryConfig controls retry behavior for extension operations
type extensionRetryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BackoffMult float64
}

// defaultRetryConfig provides sensible defaults for extension loading retries
var defaultRetryConfig = extensionRetryConfig{
	MaxRetries:  3,
	BaseDelay:   2 * time.Second,
	MaxDelay:    30 * time.Second,
	BackoffMult: 2.0,
}

// getExtensionTimeout returns the timeout for extension operations
// Configurable via DUCKDB_EXTENSION_TIMEOUT environment variable
func getExtensionTimeout() time.Duration {
	if timeoutStr := os.Getenv("DUCKDB_EXTENSION_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// duckdbVersion is the DuckDB version used for extension paths
// Single source of truth is scripts/duckdb-version.sh - keep in sync when updating
// This must also match the duckdb-go-bindings version in go.mod
const duckdbVersion = "v1.4.3"

// isExtensionInstalledLocally checks if an extension file exists in the local DuckDB
// extension directory. This is used to skip network INSTALL commands when extensions
// are pre-installed (e.g., by setup-duckdb-extensions.sh in CI).
func isExtensionInstalledLocally(extensionName string) bool {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	// DuckDB extension path: ~/.duckdb/extensions/{version}/{platform}/{name}.duckdb_extension
	platform := runtime.GOOS + "_" + runtime.GOARCH
	extPath := filepath.Join(homeDir, ".duckdb", "extensions", duckdbVersion, platform, extensionName+".duckdb_extension")

	_, err = os.Stat(extPath)
	return err == nil
}

// execResult holds the result of an async exec operation
type execResult struct {
	err error
}

// queryResult holds the result of an async query operation
type queryResult struct {
	value interface{}
	err   error
}

// execWithHardTimeout executes a SQL statement with a goroutine-based hard timeout
// This is necessary because DuckDB CGO calls don't respect context cancellation.
// We still use ExecContext for proper resource cleanup, but enforce timeout via select.
func (db *DB) execWithHardTimeout(query string) error {
	resultCh := make(chan execResult, 1)

	// Create context with same timeout - CGO may ignore it, but it helps with cleanup
	ctx, cancel := extensionContext()
	defer cancel()

	go func() {
		_, err := db.conn.ExecContext(ctx, query)
		resultCh <- execResult{err: err}
	}()

	select {
	case result := <-resultCh:
		return result.err
	case <-time.After(communityExtensionTimeout):
		return fmt.Errorf("operation timed out after %v", communityExtensionTimeout)
	}
}

// queryRowWithHardTimeout executes a query and scans a single value with a hard timeout
// This is necessary because DuckDB CGO calls don't respect context cancellation.
func (db *DB) queryRowWithHardTimeout(query string) (interface{}, error) {
	resultCh := make(chan queryResult, 1)

	// Create context with same timeout - CGO may ignore it, but it helps with cleanup
	ctx, cancel := extensionContext()
	defer cancel()

	go func() {
		var result interface{}
		err := db.conn.QueryRowContext(ctx, query).Scan(&result)
		resultCh <- queryResult{value: result, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.value, result.err
	case <-time.After(communityExtensionTimeout):
		return nil, fmt.Errorf("query timed out after %v", communityExtensionTimeout)
	}
}

// execWithRetry executes a SQL statement with retry logic and exponential backoff
// This handles transient network failures when downloading extensions
func (db *DB) execWithRetry(query string, config extensionRetryConfig) error {
	var lastErr error
	delay := config.BaseDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("query", query).
				Msg("Retrying extension operation")
			time.Sleep(delay)
			// Exponential backoff with cap
			delay = time.Duration(float64(delay) * config.BackoffMult)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		err := db.execWithHardTimeout(query)
		if err == nil {
			return nil
		}
		lastErr = err

		// Check if error is retryable (timeout or transient network error)
		errStr := err.Error()
		isRetryable := strings.Contains(errStr, "timed out") ||
			strings.Contains(errStr, "timeout") ||
			strings.Contains(errStr, "connection refused") ||
			strings.Contains(errStr, "503") ||
			strings.Contains(errStr, "temporary failure")

		if !isRetryable {
			// Non-retryable error, fail immediately
			return err
		}

		logging.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxRetries+1).
			Msg("Extension operation failed, will retry")
	}

	return fmt.Errorf("extension operation failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

// extensionInstaller is a function type for installing an extension
type extensionInstaller func(optional bool) error

// installExtension installs an extension and returns error only if not optional
func installExtension(installer extensionInstaller, optional bool) error {
	if err := installer(optional); err != nil && !optional {
		return err
	}
	return nil
}

// installExtensions installs and loads all required DuckDB extensions
// Returns error if required extensions fail to load (unless DUCKDB_EXTENSIONS_OPTIONAL=true)
//
// Extension behavior:
//   - All extensions are pre-installed in Docker images and via setup-duckdb-extensions.sh
//   - icu and json are core extensions and are always required
//   - rapidfuzz is a community extension, skipped in CI to avoid CGO download hangs
func (db *DB) installExtensions() error {
	extensionsOptional := os.Getenv("DUCKDB_EXTENSIONS_OPTIONAL") == "true"
	isCI := os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""

	coreExtensions := []extensionInstaller{
		db.installICU,
		db.installJSON,
	}
	for _, installer := range coreExtensions {
		if err := installExtension(installer, extensionsOptional); err != nil {
			return err
		}
	}

	// In CI environments, skip the rapidfuzz community extension. CGO calls
	// cannot be interrupted by Go context cancellation or timeouts - once a
	// CGO call starts, it blocks until completion or process termination.
	if isCI {
		db.fuzzAvailable = false
		return nil
	}

	return db.installRapidFuzzIfLocal(extensionsOptional)
}

// installICU installs the ICU extension for timezone support
func (db *DB) installICU(optional bool) error {
	spec := &extensionSpec{
		Name:              "icu",
		VerifyQuery:       "SELECT timezone('America/New_York', TIMESTAMP '2024-01-01 12:00:00')::VARCHAR",
		AvailabilityField: func(db *DB) *bool { return &db.icuAvailable },
		WarningMessage:    "ICU extension unavailable (DUCKDB_EXTENSIONS_OPTIONAL=true), timezone operations will be limited",
	}
	return db.installCoreExtension(spec, optional)
}

// installJSON installs the JSON extension for JSON operations
func (db *DB) installJSON(optional bool) error {
	spec := &extensionSpec{
		Name:              "json",
		VerifyQuery:       "SELECT json_extract('{\"name\":\"test\"}', '$.name')::VARCHAR",
		AvailabilityField: func(db *DB) *bool { return &db.jsonAvailable },
		WarningMessage:    "JSON extension unavailable (DUCKDB_EXTENSIONS_OPTIONAL=true), JSON operations will be limited",
	}
	return db.installCoreExtension(spec, optional)
}

// installRapidFuzz installs the RapidFuzz community extension for fuzzy string matching
// This enables the entity resolver's fuzzy ride/park name matching step
func (db *DB) installRapidFuzz(optional bool) error {
	spec := &extensionSpec{
		Name:              "rapidfuzz",
		Community:         true,
		VerifyQuery:       "SELECT rapidfuzz_ratio('hello', 'helo')",
		AvailabilityField: func(db *DB) *bool { return &db.fuzzAvailable },
		WarningMessage:    "RapidFuzz extension unavailable, entity resolution will fall back to exact matching",
	}
	return db.installCommunityExtension(spec, optional)
}

// installRapidFuzzIfLocal installs rapidfuzz ONLY if it's already locally installed.
// This prevents CGO hangs from network downloads. If not local, marks as unavailable.
func (db *DB) installRapidFuzzIfLocal(optional bool) error {
	if !isExtensionInstalledLocally("rapidfuzz") {
		db.fuzzAvailable = false
		logging.Info().Msg("rapidfuzz extension not found locally, entity resolution will use exact matching")
		return nil
	}
	return db.installRapidFuzz(optional)
}
