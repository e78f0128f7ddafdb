// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/parkwatch/internal/models"
)

// TrendDirection selects whether a trend query surfaces worsening or
// improving entities.
type TrendDirection string

const (
	TrendDeclining TrendDirection = "declining"
	TrendImproving TrendDirection = "improving"
)

// TrendRow is one entity's week-over-week downtime comparison, read directly
// from the weekly rollup (models.TrendVsPrevious, computed once during
// AggregateWeek and never re-derived here).
type TrendRow struct {
	EntityID            string  `json:"entity_id"`
	EntityName          string  `json:"entity_name"`
	ParkID              string  `json:"park_id"`
	TrendPercentage     float64 `json:"trend_percentage"`
	DowntimeHours       float64 `json:"downtime_hours"`
	PreviousDowntimeHours float64 `json:"previous_downtime_hours"`
}

// DecliningOrImprovingParks returns parks whose week-over-week downtime
// moved in direction, ordered worst/best first, capped at limit.
func (s *Service) DecliningOrImprovingParks(ctx context.Context, direction TrendDirection, limit int) ([]TrendRow, error) {
	isoYear, isoWeek := pacificReferenceWeek()
	weekly, err := s.db.ListParkWeeklyStats(ctx, isoYear, isoWeek)
	if err != nil {
		return nil, fmt.Errorf("trend parks: %w", err)
	}
	parks, err := s.parksByID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []TrendRow
	for _, w := range weekly {
		if w.TrendVsPreviousWeek == nil {
			continue
		}
		trend := *w.TrendVsPreviousWeek
		if !matchesDirection(direction, trend) {
			continue
		}
		prevDowntime := previousDowntimeHours(w.TotalDowntimeHours, trend)
		name := w.ParkID
		if park := parks[w.ParkID]; park != nil {
			name = park.Name
		}
		rows = append(rows, TrendRow{
			EntityID:              w.ParkID,
			EntityName:            name,
			ParkID:                w.ParkID,
			TrendPercentage:       trend,
			DowntimeHours:         w.TotalDowntimeHours,
			PreviousDowntimeHours: prevDowntime,
		})
	}
	return sortAndTrimTrends(rows, direction, limit), nil
}

// DecliningOrImprovingRides returns rides whose week-over-week downtime
// moved in direction, ordered worst/best first, capped at limit.
func (s *Service) DecliningOrImprovingRides(ctx context.Context, direction TrendDirection, limit int) ([]TrendRow, error) {
	isoYear, isoWeek := pacificReferenceWeek()
	parks, err := s.parksByID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []TrendRow
	for parkID, park := range parks {
		weekly, err := s.db.ListRideWeeklyStats(ctx, parkID, isoYear, isoWeek)
		if err != nil {
			return nil, fmt.Errorf("trend rides for %s: %w", parkID, err)
		}
		rides, err := s.db.GetRidesForPark(ctx, parkID)
		if err != nil {
			return nil, fmt.Errorf("load rides for %s: %w", parkID, err)
		}
		rideByID := make(map[string]*models.Ride, len(rides))
		for _, r := range rides {
			rideByID[r.ID] = r
		}

		for _, w := range weekly {
			if w.TrendVsPreviousWeek == nil {
				continue
			}
			trend := *w.TrendVsPreviousWeek
			if !matchesDirection(direction, trend) {
				continue
			}
			downtimeHours := float64(w.DowntimeMinutes) / 60
			name := w.RideID
			if ride := rideByID[w.RideID]; ride != nil {
				name = ride.Name
			}
			rows = append(rows, TrendRow{
				EntityID:              w.RideID,
				EntityName:            name,
				ParkID:                park.ID,
				TrendPercentage:       trend,
				DowntimeHours:         downtimeHours,
				PreviousDowntimeHours: previousDowntimeHours(downtimeHours, trend),
			})
		}
	}
	return sortAndTrimTrends(rows, direction, limit), nil
}

// LongestWaits returns the rides with the highest peak wait time over the
// Pacific reference week, read from ride_weekly_stats, no write path of its
// own.
func (s *Service) LongestWaits(ctx context.Context, limit int) ([]RankingRow, error) {
	parks, err := s.parksByID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.lastWeekRideRankings(ctx, parks, FilterAllParks, 0)
	if err != nil {
		return nil, err
	}
	return rankAndTrim(rows, limit, func(a, b RankingRow) bool {
		return peakWaitOf(a) > peakWaitOf(b)
	}), nil
}

func peakWaitOf(r RankingRow) int {
	if r.PeakWaitMinutes == nil {
		return 0
	}
	return *r.PeakWaitMinutes
}

func matchesDirection(direction TrendDirection, trendPercentage float64) bool {
	if direction == TrendDeclining {
		return trendPercentage > 0
	}
	return trendPercentage < 0
}

// previousDowntimeHours inverts models.TrendVsPrevious's formula to recover
// the prior week's downtime hours for display alongside the percentage.
func previousDowntimeHours(thisDowntimeHours, trendPercentage float64) float64 {
	denom := 1 + trendPercentage/100
	if denom == 0 {
		return 0
	}
	return thisDowntimeHours / denom
}

func sortAndTrimTrends(rows []TrendRow, direction TrendDirection, limit int) []TrendRow {
	sort.Slice(rows, func(i, j int) bool {
		if direction == TrendDeclining {
			return rows[i].TrendPercentage > rows[j].TrendPercentage
		}
		return rows[i].TrendPercentage < rows[j].TrendPercentage
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
