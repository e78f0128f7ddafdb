// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
)

const defaultSnapshotInterval = 10 * time.Minute

// CollectorService drives Collector.RunCycle on a fixed ticker, the same
// ticker/stop-channel shape internal/aggregator.Aggregator and
// internal/rankings.Materializer use for their own scheduled work.
type CollectorService struct {
	collector *Collector
	interval  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCollectorService wraps collector in a ticker loop that fires every
// snapshotIntervalMinutes (config.CollectorConfig.SnapshotIntervalMinutes).
func NewCollectorService(collector *Collector, snapshotIntervalMinutes int) *CollectorService {
	interval := time.Duration(snapshotIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	return &CollectorService{collector: collector, interval: interval}
}

// Start begins the collector's ticker loop.
func (s *CollectorService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("collector already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	logging.Info().Dur("interval", s.interval).Msg("starting ride status collector")
	go s.run(ctx)
	return nil
}

// Stop stops the ticker loop and waits for the in-flight cycle to finish.
func (s *CollectorService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// IsRunning reports whether the ticker loop is active.
func (s *CollectorService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *CollectorService) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycleOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runCycleOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *CollectorService) runCycleOnce(ctx context.Context) {
	start := time.Now()
	err := s.collector.RunCycle(ctx)
	metrics.RecordCollectorCycle("scheduled", time.Since(start), 0, err)
	if err != nil {
		logging.Error().Err(err).Msg("collection cycle failed")
		return
	}
	logging.Info().Dur("duration", time.Since(start)).Msg("collection cycle completed")
}

// Service wraps a CollectorService as a suture.Service.
type Service struct {
	collector *CollectorService
	name      string
}

// NewService creates a supervised wrapper around a CollectorService.
func NewService(collector *CollectorService) *Service {
	return &Service{collector: collector, name: "collector"}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.collector.Start(ctx); err != nil {
		return fmt.Errorf("collector start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.collector.Stop(); err != nil {
		return fmt.Errorf("collector stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *Service) String() string {
	return s.name
}
