// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// RideStatus is the upstream-reported operating status of a ride. The zero
// value (empty string) represents the null/unknown status case used by the
// park-type down rule for non-Disney parks.
type RideStatus string

const (
	StatusOperating     RideStatus = "OPERATING"
	StatusDown          RideStatus = "DOWN"
	StatusClosed        RideStatus = "CLOSED"
	StatusRefurbishment RideStatus = "REFURBISHMENT"
)

// DataSource tags whether a snapshot came from live collection or an
// archive backfill import.
type DataSource string

const (
	DataSourceLive    DataSource = "LIVE"
	DataSourceArchive DataSource = "ARCHIVE"
)

// RideStatusSnapshot is one ride's observed state at one collection cycle.
// (ride_id, recorded_at) is unique. RecordedAt is always UTC and, within a
// single collection cycle, identical across every ride and the park's
// ParkActivitySnapshot row (the writer invariant from §4.4/§9 that makes
// later equality-joins safe).
type RideStatusSnapshot struct {
	RideID         string     `json:"ride_id" db:"ride_id"`
	ParkID         string     `json:"park_id" db:"park_id"`
	RecordedAt     time.Time  `json:"recorded_at" db:"recorded_at"`
	Status         RideStatus `json:"status,omitempty" db:"status"`
	ComputedIsOpen bool       `json:"computed_is_open" db:"computed_is_open"`
	WaitTimeMin    *int       `json:"wait_time_minutes,omitempty" db:"wait_time_minutes"`
	DataSource     DataSource `json:"data_source" db:"data_source"`
}

// IsDown evaluates the park-type down rule (§3) for a single snapshot:
// Disney/Universal parks count only an explicit DOWN status; every other
// park also counts CLOSED, and counts a null status when the ride is not
// computed-open.
func (s RideStatusSnapshot) IsDown(parkIsDisneyOrUniversal bool) bool {
	if parkIsDisneyOrUniversal {
		return s.Status == StatusDown
	}
	if s.Status == StatusDown || s.Status == StatusClosed {
		return true
	}
	return s.Status == "" && !s.ComputedIsOpen
}

// ParkActivitySnapshot is one park's aggregate state at one collection
// cycle. (park_id, recorded_at) is unique.
type ParkActivitySnapshot struct {
	ParkID           string    `json:"park_id" db:"park_id"`
	RecordedAt       time.Time `json:"recorded_at" db:"recorded_at"`
	RidesTracked     int       `json:"rides_tracked" db:"rides_tracked"`
	RidesOpen        int       `json:"rides_open" db:"rides_open"`
	RidesClosed      int       `json:"rides_closed" db:"rides_closed"`
	AvgWaitMinutes   *float64  `json:"avg_wait_time,omitempty" db:"avg_wait_time"`
	MaxWaitMinutes   *int      `json:"max_wait_time,omitempty" db:"max_wait_time"`
	ParkAppearsOpen  bool      `json:"park_appears_open" db:"park_appears_open"`
	ShameScore       *float64  `json:"shame_score,omitempty" db:"shame_score"`
}

// ClampShameScore rounds v to one decimal and clamps it into [0, 10]; used
// by the snapshot writer when computing ShameScore, never applied to a
// value read back out (reads trust what was written).
func ClampShameScore(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return float64(int(v*10+0.5)) / 10
}

// UpstreamSnapshot is the uniform shape every upstream adapter (§4.1)
// normalizes vendor payloads into, before entity resolution and persistence.
type UpstreamSnapshot struct {
	ExternalParkID      string     `json:"external_park_id"`
	ExternalRideID      string     `json:"external_ride_id,omitempty"`
	ExternalRideName    string     `json:"external_ride_name,omitempty"`
	Timestamp           time.Time  `json:"timestamp"`
	Status              RideStatus `json:"status,omitempty"`
	WaitTimeMinutes     *int       `json:"wait_time_minutes,omitempty"`
	ParkOpenHint        *bool      `json:"park_open_hint,omitempty"`
	IsDisney            bool       `json:"-"`
	IsUniversal         bool       `json:"-"`
	DataSource          DataSource `json:"-"`
}
