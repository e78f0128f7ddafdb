// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package query answers the read-side contract of the HTTP API: rankings
// over a period, trend comparisons, and chart-shaped time series. It owns no
// write path; every method is a read over tables internal/aggregator,
// internal/rankings, and internal/sync already populate.
package query

import (
	"fmt"
	"time"

	"github.com/tomtom215/parkwatch/internal/cache"
	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/metrics"
	"github.com/tomtom215/parkwatch/internal/models"
)

// Filter narrows a ranking query to a park subset.
type Filter string

const (
	FilterAllParks        Filter = "all-parks"
	FilterDisneyUniversal Filter = "disney-universal"
)

// IsValidFilter reports whether f is one of the supported values.
func IsValidFilter(f Filter) bool {
	switch f {
	case FilterAllParks, FilterDisneyUniversal:
		return true
	default:
		return false
	}
}

func (f Filter) includes(park *models.Park) bool {
	if f == FilterDisneyUniversal {
		return park.IsDisneyOrUniversal()
	}
	return true
}

// pacific is the fixed reference zone the hybrid TODAY query and the
// last_week/last_month calendar windows use (§4.7). It is independent of any
// single park's own Park.Timezone, which only governs that park's
// daily/weekly rollup boundaries.
var pacific = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Every Go toolchain ships the tzdata needed for this; a failure
		// here means a broken build environment, not a runtime condition
		// to recover from.
		panic(fmt.Sprintf("query: load location %q: %v", name, err))
	}
	return loc
}

// Service answers ranking, trend, and chart queries against the database,
// caching period-scoped results for config.QueryConfig.CacheTTL the way the
// rest of this repo's read paths lean on internal/cache rather than hitting
// the database on every request.
type Service struct {
	db    *database.DB
	cfg   config.QueryConfig
	cache *cache.Cache

	// snapshotIntervalMinutes is the collector's own cadence
	// (config.CollectorConfig.SnapshotIntervalMinutes), needed to turn a
	// raw-snapshot count into downtime hours the same way the hourly
	// aggregation job does (AggregateHour).
	snapshotIntervalMinutes int
}

// NewService builds a Service. A zero-value cache TTL falls back to a 30s
// default; a non-positive snapshotIntervalMinutes falls back to 10, the
// same default internal/database.AggregateRawWindowRides uses.
func NewService(db *database.DB, cfg config.QueryConfig, snapshotIntervalMinutes int) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if snapshotIntervalMinutes <= 0 {
		snapshotIntervalMinutes = 10
	}
	return &Service{
		db:                      db,
		cfg:                     cfg,
		cache:                   cache.New(ttl),
		snapshotIntervalMinutes: snapshotIntervalMinutes,
	}
}

func (s *Service) cacheGet(key string) (interface{}, bool) {
	v, ok := s.cache.Get(key)
	if ok {
		metrics.RecordCacheHit("query")
	} else {
		metrics.RecordCacheMiss("query")
	}
	return v, ok
}

func (s *Service) cacheSet(key string, v interface{}) {
	s.cache.Set(key, v)
}
