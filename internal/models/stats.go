// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// RideHourlyStats is one ride's derived statistics for one UTC hour.
// (ride_id, hour_start_utc) is unique. A row exists only when at least one
// snapshot fed it; zero-fill is forbidden (§3) so absence of a row means
// absence of data, not a zero value.
type RideHourlyStats struct {
	RideID               string    `json:"ride_id" db:"ride_id"`
	ParkID               string    `json:"park_id" db:"park_id"`
	HourStartUTC         time.Time `json:"hour_start_utc" db:"hour_start_utc"`
	OperatingSnapshots   int       `json:"operating_snapshots" db:"operating_snapshots"`
	DownSnapshots        int       `json:"down_snapshots" db:"down_snapshots"`
	DowntimeHours        float64   `json:"downtime_hours" db:"downtime_hours"`
	WeightedDowntimeHours float64  `json:"weighted_downtime_hours" db:"weighted_downtime_hours"`
	EffectiveWeight      int       `json:"effective_weight" db:"effective_weight"`
	RideOperated         bool      `json:"ride_operated" db:"ride_operated"`
	SnapshotCount        int       `json:"snapshot_count" db:"snapshot_count"`
	UptimePercentage     float64   `json:"uptime_percentage" db:"uptime_percentage"`
	StatusChanges        int       `json:"status_changes" db:"status_changes"`
	LongestDowntimeMinutes int     `json:"longest_downtime_minutes" db:"longest_downtime_minutes"`
}

// ParkHourlyStats is one park's derived statistics for one UTC hour.
// (park_id, hour_start_utc) is unique.
type ParkHourlyStats struct {
	ParkID          string    `json:"park_id" db:"park_id"`
	HourStartUTC    time.Time `json:"hour_start_utc" db:"hour_start_utc"`
	AvgShameScore   *float64  `json:"avg_shame_score,omitempty" db:"avg_shame_score"`
	AvgWaitMinutes  *float64  `json:"avg_wait_time,omitempty" db:"avg_wait_time"`
	MaxWaitMinutes  *int      `json:"max_wait_time,omitempty" db:"max_wait_time"`
	ParkWasOpen     bool      `json:"park_was_open" db:"park_was_open"`
	SnapshotCount   int       `json:"snapshot_count" db:"snapshot_count"`
	TotalDowntimeHours float64 `json:"total_downtime_hours" db:"total_downtime_hours"`
	RidesDown       int       `json:"rides_down" db:"rides_down"`
}

// RideDailyStats is one ride's derived statistics for one local-calendar
// day. StatDate is the park's local date (not UTC); the day boundary
// [00:00 local, next 00:00 local) is converted to UTC before querying
// snapshots (§4.5).
type RideDailyStats struct {
	RideID                 string    `json:"ride_id" db:"ride_id"`
	ParkID                 string    `json:"park_id" db:"park_id"`
	StatDate               string    `json:"stat_date" db:"stat_date"` // YYYY-MM-DD, park-local
	UptimeMinutes          int       `json:"uptime_minutes" db:"uptime_minutes"`
	DowntimeMinutes        int       `json:"downtime_minutes" db:"downtime_minutes"`
	OperatingHoursMinutes  int       `json:"operating_hours_minutes" db:"operating_hours_minutes"`
	AvgWaitMinutes         *float64  `json:"avg_wait_time,omitempty" db:"avg_wait_time"`
	MinWaitMinutes         *int      `json:"min_wait_time,omitempty" db:"min_wait_time"`
	MaxWaitMinutes         *int      `json:"max_wait_time,omitempty" db:"max_wait_time"`
	PeakWaitMinutes        *int      `json:"peak_wait_time,omitempty" db:"peak_wait_time"`
	StatusChanges          int       `json:"status_changes" db:"status_changes"`
	LongestDowntimeMinutes int       `json:"longest_downtime_minutes" db:"longest_downtime_minutes"`
}

// UptimePercentage derives uptime percentage on read; it is never stored
// because it is a pure function of uptime/operating minutes.
func (s RideDailyStats) UptimePercentage() float64 {
	if s.OperatingHoursMinutes == 0 {
		return 0
	}
	return float64(s.UptimeMinutes) / float64(s.OperatingHoursMinutes) * 100
}

// ParkDailyStats is one park's rollup across its rides for one local day.
type ParkDailyStats struct {
	ParkID                string   `json:"park_id" db:"park_id"`
	StatDate              string   `json:"stat_date" db:"stat_date"`
	AvgShameScore         *float64 `json:"avg_shame_score,omitempty" db:"avg_shame_score"`
	AvgWaitMinutes        *float64 `json:"avg_wait_time,omitempty" db:"avg_wait_time"`
	MaxWaitMinutes        *int     `json:"max_wait_time,omitempty" db:"max_wait_time"`
	TotalDowntimeHours    float64  `json:"total_downtime_hours" db:"total_downtime_hours"`
	RidesReporting        int      `json:"rides_reporting" db:"rides_reporting"`
}

// RideWeeklyStats is one ride's rollup for one ISO (year, week), derived
// from RideDailyStats rows, never from raw snapshots (§4.5). Missing days
// within the week are simply absent from the sum, not zero-filled.
type RideWeeklyStats struct {
	RideID                string    `json:"ride_id" db:"ride_id"`
	ParkID                string    `json:"park_id" db:"park_id"`
	ISOYear               int       `json:"iso_year" db:"iso_year"`
	ISOWeek               int       `json:"iso_week" db:"iso_week"`
	WeekStartDate         string    `json:"week_start_date" db:"week_start_date"` // Monday, park-local
	UptimeMinutes         int       `json:"uptime_minutes" db:"uptime_minutes"`
	DowntimeMinutes       int       `json:"downtime_minutes" db:"downtime_minutes"`
	OperatingHoursMinutes int       `json:"operating_hours_minutes" db:"operating_hours_minutes"`
	AvgWaitMinutes        *float64  `json:"avg_wait_time,omitempty" db:"avg_wait_time"`
	PeakWaitMinutes       *int      `json:"peak_wait_time,omitempty" db:"peak_wait_time"`
	StatusChanges         int       `json:"status_changes" db:"status_changes"`
	TrendVsPreviousWeek   *float64  `json:"trend_vs_previous_week,omitempty" db:"trend_vs_previous_week"`
	DaysPresent           int       `json:"days_present" db:"days_present"`
}

// UptimePercentage is uptime/operating, a derived read-time value.
func (s RideWeeklyStats) UptimePercentage() float64 {
	if s.OperatingHoursMinutes == 0 {
		return 0
	}
	return float64(s.UptimeMinutes) / float64(s.OperatingHoursMinutes) * 100
}

// TrendVsPrevious computes (this.downtime - prev.downtime) / prev.downtime
// * 100. Returns nil when prevDowntimeMinutes is zero (no meaningful trend).
func TrendVsPrevious(thisDowntimeMinutes, prevDowntimeMinutes int) *float64 {
	if prevDowntimeMinutes == 0 {
		return nil
	}
	v := float64(thisDowntimeMinutes-prevDowntimeMinutes) / float64(prevDowntimeMinutes) * 100
	return &v
}

// ParkWeeklyStats is a park's rollup across its rides for one ISO week.
type ParkWeeklyStats struct {
	ParkID              string   `json:"park_id" db:"park_id"`
	ISOYear             int      `json:"iso_year" db:"iso_year"`
	ISOWeek             int      `json:"iso_week" db:"iso_week"`
	WeekStartDate       string   `json:"week_start_date" db:"week_start_date"`
	AvgShameScore       *float64 `json:"avg_shame_score,omitempty" db:"avg_shame_score"`
	TotalDowntimeHours  float64  `json:"total_downtime_hours" db:"total_downtime_hours"`
	TrendVsPreviousWeek *float64 `json:"trend_vs_previous_week,omitempty" db:"trend_vs_previous_week"`
}

// ISOWeekStart returns the Monday (in loc) that starts the ISO week
// containing t.
func ISOWeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO: Sunday is day 7
	}
	year, month, day := local.Date()
	monday := time.Date(year, month, day, 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
	return monday
}
