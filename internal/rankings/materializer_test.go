// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package rankings

import (
	"testing"
	"time"

	"github.com/tomtom215/parkwatch/internal/config"
)

func TestNewDefaultsIntervalFromConfig(t *testing.T) {
	m := New(nil, config.RankingsConfig{IntervalMinutes: 15}, 2)
	if m.interval != 15*time.Minute {
		t.Errorf("expected interval 15m, got %v", m.interval)
	}
}

func TestNewFallsBackToDefaultInterval(t *testing.T) {
	m := New(nil, config.RankingsConfig{}, 2)
	if m.interval != defaultInterval {
		t.Errorf("expected fallback interval %v, got %v", defaultInterval, m.interval)
	}
}

func TestNewFallsBackToDefaultDormantThreshold(t *testing.T) {
	m := New(nil, config.RankingsConfig{IntervalMinutes: 5}, 2)
	if m.dormantThreshold != 7*24*time.Hour {
		t.Errorf("expected fallback dormant threshold of 7 days, got %v", m.dormantThreshold)
	}
}

func TestNewFallsBackToDefaultWindowHours(t *testing.T) {
	m := New(nil, config.RankingsConfig{IntervalMinutes: 5}, 0)
	if m.windowHours != 2 {
		t.Errorf("expected fallback window of 2 hours, got %d", m.windowHours)
	}
}

func TestNewKeepsConfiguredDormantThreshold(t *testing.T) {
	m := New(nil, config.RankingsConfig{IntervalMinutes: 5, DormantThreshold: 3 * 24 * time.Hour}, 2)
	if m.dormantThreshold != 3*24*time.Hour {
		t.Errorf("expected configured dormant threshold of 3 days, got %v", m.dormantThreshold)
	}
}

func TestIsRunningInitiallyFalse(t *testing.T) {
	m := New(nil, config.RankingsConfig{IntervalMinutes: 5}, 2)
	if m.IsRunning() {
		t.Error("expected a freshly constructed materializer to not be running")
	}
}

func TestStopNoOpWhenUnstarted(t *testing.T) {
	m := New(nil, config.RankingsConfig{IntervalMinutes: 5}, 2)
	if err := m.Stop(); err != nil {
		t.Errorf("expected Stop on an unstarted materializer to be a no-op, got %v", err)
	}
}
