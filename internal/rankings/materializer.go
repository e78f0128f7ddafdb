// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package rankings drives the live-rankings materializer: a ticker loop
// that recomputes the park/ride live-leaderboard tables every cycle via
// database.DB.MaterializeLiveRankings's staging-swap (spec.md §4.6), the
// same ticker-plus-stop-channel shape internal/aggregator uses for its own
// rollup chain.
package rankings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
)

const defaultInterval = 5 * time.Minute

// Materializer runs database.DB.MaterializeLiveRankings on a fixed cadence.
type Materializer struct {
	db *database.DB

	windowHours      int
	dormantThreshold time.Duration
	interval         time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Materializer from configuration. liveWindowHours is the
// config.QueryConfig.LiveWindowHours value: how far back the materializer
// looks for each ride's and park's latest snapshot. The hybrid TODAY query
// does not use it; its windows start at Pacific midnight.
func New(db *database.DB, cfg config.RankingsConfig, liveWindowHours int) *Materializer {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultInterval
	}
	dormantThreshold := cfg.DormantThreshold
	if dormantThreshold <= 0 {
		dormantThreshold = 7 * 24 * time.Hour
	}
	windowHours := liveWindowHours
	if windowHours <= 0 {
		windowHours = 2
	}
	return &Materializer{
		db:               db,
		windowHours:      windowHours,
		dormantThreshold: dormantThreshold,
		interval:         interval,
	}
}

// Start begins the materializer's ticker loop.
func (m *Materializer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("rankings materializer already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	logging.Info().Dur("interval", m.interval).Msg("starting live rankings materializer")
	go m.run(ctx)
	return nil
}

// Stop stops the ticker loop and waits for the in-flight cycle to finish.
func (m *Materializer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

// IsRunning reports whether the ticker loop is active.
func (m *Materializer) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Materializer) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.materializeOnce(ctx)

	for {
		select {
		case <-ticker.C:
			m.materializeOnce(ctx)
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Materializer) materializeOnce(ctx context.Context) {
	start := time.Now()
	err := m.db.MaterializeLiveRankings(ctx, m.windowHours, m.dormantThreshold)
	metrics.RecordRankingsMaterialization(time.Since(start), m.db.RankingsVersion())
	if err != nil {
		logging.Error().Err(err).Msg("live rankings materialization failed")
		return
	}
	logging.Info().Dur("duration", time.Since(start)).Int64("version", m.db.RankingsVersion()).
		Msg("live rankings materialized")
}
