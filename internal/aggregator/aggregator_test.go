// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package aggregator

import (
	"testing"
	"time"

	"github.com/tomtom215/parkwatch/internal/config"
)

func TestIsoWeekday(t *testing.T) {
	cases := []struct {
		name string
		date string // YYYY-MM-DD
		want int
	}{
		{"monday", "2026-07-27", 1},
		{"saturday", "2026-08-01", 6},
		{"sunday", "2026-08-02", 7},
	}
	for _, tc := range cases {
		d, err := time.Parse("2006-01-02", tc.date)
		if err != nil {
			t.Fatalf("%s: bad fixture date: %v", tc.name, err)
		}
		if got := isoWeekday(d); got != tc.want {
			t.Errorf("%s: isoWeekday(%s) = %d, want %d", tc.name, tc.date, got, tc.want)
		}
	}
}

func TestNewDefaultsCheckIntervalFromConfig(t *testing.T) {
	a := New(nil, config.AggregatorConfig{HourlyIntervalMinutes: 30}, 10)
	if a.checkInterval != 30*time.Minute {
		t.Errorf("expected check interval 30m, got %v", a.checkInterval)
	}
}

func TestNewFallsBackToDefaultCheckInterval(t *testing.T) {
	a := New(nil, config.AggregatorConfig{}, 10)
	if a.checkInterval != defaultCheckInterval {
		t.Errorf("expected fallback check interval %v, got %v", defaultCheckInterval, a.checkInterval)
	}
}

func TestNewFallsBackToDefaultSnapshotInterval(t *testing.T) {
	a := New(nil, config.AggregatorConfig{HourlyIntervalMinutes: 60}, 0)
	if a.snapshotIntervalMinutes != 10 {
		t.Errorf("expected fallback snapshot interval 10, got %d", a.snapshotIntervalMinutes)
	}
}

func TestIsRunningInitiallyFalse(t *testing.T) {
	a := New(nil, config.AggregatorConfig{HourlyIntervalMinutes: 60}, 10)
	if a.IsRunning() {
		t.Error("expected a freshly constructed aggregator to not be running")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	a := New(nil, config.AggregatorConfig{HourlyIntervalMinutes: 60}, 10)
	if err := a.Stop(); err != nil {
		t.Errorf("expected Stop on an unstarted aggregator to be a no-op, got %v", err)
	}
}
