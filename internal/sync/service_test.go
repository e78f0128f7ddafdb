// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"testing"
	"time"
)

func TestNewCollectorServiceUsesConfiguredInterval(t *testing.T) {
	s := NewCollectorService(nil, 15)
	if s.interval != 15*time.Minute {
		t.Errorf("expected interval 15m, got %v", s.interval)
	}
}

func TestNewCollectorServiceFallsBackToDefaultInterval(t *testing.T) {
	s := NewCollectorService(nil, 0)
	if s.interval != defaultSnapshotInterval {
		t.Errorf("expected fallback interval %v, got %v", defaultSnapshotInterval, s.interval)
	}
}

func TestCollectorServiceIsRunningInitiallyFalse(t *testing.T) {
	s := NewCollectorService(nil, 10)
	if s.IsRunning() {
		t.Error("expected a freshly constructed collector service to not be running")
	}
}

func TestCollectorServiceStopNoOpWhenUnstarted(t *testing.T) {
	s := NewCollectorService(nil, 10)
	if err := s.Stop(); err != nil {
		t.Errorf("expected Stop on an unstarted collector service to be a no-op, got %v", err)
	}
}

func TestNewServiceName(t *testing.T) {
	svc := NewService(NewCollectorService(nil, 10))
	if svc.String() != "collector" {
		t.Errorf("expected service name %q, got %q", "collector", svc.String())
	}
}
