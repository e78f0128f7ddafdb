// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order
// of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/parkwatch/config.yaml",
	"/etc/parkwatch/config.yml",
}

// ConfigPathEnvVar overrides the searched config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// sliceConfigPaths lists the koanf paths that take a comma-separated list
// from an environment variable and must be split into a slice before
// Unmarshal.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// LoadWithKoanf loads configuration in three layers, ENV overriding File
// overriding Defaults, validates the result, and returns it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps SCREAMING_SNAKE_CASE environment variable names
// onto dotted koanf paths, e.g. UPSTREAM_A_BASE_URL -> upstream_a.base_url,
// DUCKDB_PATH -> database.path, HTTP_PORT -> server.port.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	switch {
	case strings.HasPrefix(key, "upstream_a_"):
		return "upstream_a." + strings.TrimPrefix(key, "upstream_a_")
	case strings.HasPrefix(key, "upstream_b_"):
		return "upstream_b." + strings.TrimPrefix(key, "upstream_b_")
	case strings.HasPrefix(key, "duckdb_"):
		return "database." + strings.TrimPrefix(key, "duckdb_")
	case strings.HasPrefix(key, "collector_"):
		return "collector." + strings.TrimPrefix(key, "collector_")
	case key == "snapshot_interval_minutes":
		return "collector.snapshot_interval_minutes"
	case key == "filter_country":
		return "collector.filter_country"
	case strings.HasPrefix(key, "aggregator_"):
		return "aggregator." + strings.TrimPrefix(key, "aggregator_")
	case strings.HasPrefix(key, "rankings_"):
		return "rankings." + strings.TrimPrefix(key, "rankings_")
	case key == "use_hourly_tables":
		return "query.use_hourly_tables"
	case key == "live_window_hours":
		return "query.live_window_hours"
	case strings.HasPrefix(key, "query_"):
		return "query." + strings.TrimPrefix(key, "query_")
	case strings.HasPrefix(key, "import_"):
		return "import." + strings.TrimPrefix(key, "import_")
	case key == "http_host":
		return "server.host"
	case key == "http_port":
		return "server.port"
	case strings.HasPrefix(key, "http_"):
		return "server." + strings.TrimPrefix(key, "http_")
	case strings.HasPrefix(key, "jwt_"):
		return "security." + key
	case strings.HasPrefix(key, "cors_"):
		return "security." + key
	case strings.HasPrefix(key, "log_"):
		return "logging." + strings.TrimPrefix(key, "log_")
	default:
		return strings.ReplaceAll(key, "__", ".")
	}
}

// processSliceFields splits comma-separated env values into slices for the
// koanf paths that the Config struct expects as []string.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue // already a slice, came from the YAML file
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set slice field %s: %w", path, err)
		}
	}
	return nil
}
