// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// Park represents a tracked theme park.
//
// Timezone must be a valid IANA zone name (e.g. "America/Los_Angeles").
// All per-park daily/weekly boundaries are derived by converting
// RideStatusSnapshot/ParkActivitySnapshot timestamps (always stored in UTC)
// into this timezone; see RideDailyStats.StatDate.
type Park struct {
	ID          string    `json:"id" db:"id"`
	ExternalIDs []string  `json:"external_ids" db:"external_ids"`
	Name        string    `json:"name" db:"name"`
	Location    *LatLon   `json:"location,omitempty" db:"-"`
	Latitude    *float64  `json:"-" db:"latitude"`
	Longitude   *float64  `json:"-" db:"longitude"`
	Timezone    string    `json:"timezone" db:"timezone"`
	IsDisney    bool      `json:"is_disney" db:"is_disney"`
	IsUniversal bool      `json:"is_universal" db:"is_universal"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// LatLon is a decoded geographic point, assembled from the Latitude/Longitude
// columns at the database boundary so callers never see nullable floats.
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsDisneyOrUniversal reports whether the park-type down rule (§3) should
// count only status=DOWN (true) or also CLOSED / null-and-not-open (false).
func (p Park) IsDisneyOrUniversal() bool {
	return p.IsDisney || p.IsUniversal
}

// RideCategory enumerates the kinds of attractions a park can offer.
type RideCategory string

const (
	RideCategoryAttraction   RideCategory = "ATTRACTION"
	RideCategoryShow         RideCategory = "SHOW"
	RideCategoryMeetAndGreet RideCategory = "MEET_AND_GREET"
	RideCategoryExperience   RideCategory = "EXPERIENCE"
)

// IsValidRideCategory reports whether category is one of the enumerated values.
func IsValidRideCategory(category RideCategory) bool {
	switch category {
	case RideCategoryAttraction, RideCategoryShow, RideCategoryMeetAndGreet, RideCategoryExperience:
		return true
	default:
		return false
	}
}

// Ride represents a single attraction, show, meet-and-greet, or experience
// within a park.
type Ride struct {
	ID              string       `json:"id" db:"id"`
	ExternalIDs     []string     `json:"external_ids" db:"external_ids"`
	ParkID          string       `json:"park_id" db:"park_id"`
	Name            string       `json:"name" db:"name"`
	Category        RideCategory `json:"category" db:"category"`
	Tier            int          `json:"tier" db:"tier"` // denormalized from RideClassification; must match
	LastOperatedAt  *time.Time   `json:"last_operated_at,omitempty" db:"last_operated_at"`
	Active          bool         `json:"active" db:"active"`
	QueueTimesURL   string       `json:"queue_times_url,omitempty" db:"queue_times_url"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// DormantSince reports whether the ride has had no operating status in
// more than the given duration as of now, the rule used to exclude rides
// that have gone quiet for >7 days from live rankings (§3).
func (r Ride) DormantSince(now time.Time, threshold time.Duration) bool {
	if r.LastOperatedAt == nil {
		return true
	}
	return now.Sub(*r.LastOperatedAt) > threshold
}
