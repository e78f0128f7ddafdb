// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// RankingPeriod selects which time window a ranking query covers.
type RankingPeriod string

const (
	// PeriodLive names the sub-minute-fresh leaderboard the materializer's
	// staging-swap produces (§4.6). The other four periods are computed
	// on demand from the daily/weekly rollup tables instead.
	PeriodLive      RankingPeriod = "live"
	PeriodToday     RankingPeriod = "today"
	PeriodYesterday RankingPeriod = "yesterday"
	PeriodLastWeek  RankingPeriod = "last_week"
	PeriodLastMonth RankingPeriod = "last_month"
)

// IsValidRankingPeriod reports whether period is one of the supported values.
func IsValidRankingPeriod(period RankingPeriod) bool {
	switch period {
	case PeriodLive, PeriodToday, PeriodYesterday, PeriodLastWeek, PeriodLastMonth:
		return true
	default:
		return false
	}
}

// ParkLiveRankings is one row of the materialized, pre-sorted park leaderboard
// that backs the public ranking endpoints. It is produced wholesale by the
// materializer's staging-swap (§5), never updated incrementally.
type ParkLiveRankings struct {
	ParkID        string        `json:"park_id" db:"park_id"`
	ParkName      string        `json:"park_name" db:"park_name"`
	Period        RankingPeriod `json:"period" db:"period"`
	Rank          int           `json:"rank" db:"rank"`
	ShameScore    float64       `json:"shame_score" db:"shame_score"`
	RidesDown     int           `json:"rides_down" db:"rides_down"`
	RidesTracked  int           `json:"rides_tracked" db:"rides_tracked"`
	MaterializedAt time.Time    `json:"materialized_at" db:"materialized_at"`
}

// RideLiveRankings is one row of the materialized per-ride downtime
// leaderboard, ranked across all parks. Dormant rides (Ride.DormantSince)
// are excluded by the materializer before this table is built, never
// filtered at query time.
type RideLiveRankings struct {
	RideID         string        `json:"ride_id" db:"ride_id"`
	RideName       string        `json:"ride_name" db:"ride_name"`
	ParkID         string        `json:"park_id" db:"park_id"`
	Period         RankingPeriod `json:"period" db:"period"`
	Rank           int           `json:"rank" db:"rank"`
	WeightedDowntimeHours float64 `json:"weighted_downtime_hours" db:"weighted_downtime_hours"`
	DowntimeHours  float64       `json:"downtime_hours" db:"downtime_hours"`
	Tier           int           `json:"tier" db:"tier"`
	MaterializedAt time.Time     `json:"materialized_at" db:"materialized_at"`
}
