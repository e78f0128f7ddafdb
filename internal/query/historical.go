// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/parkwatch/internal/models"
)

// yesterdayParkRankings averages stored shame_score over the Pacific
// yesterday window directly from park_activity_snapshots, per §4.7's
// explicit rule against re-deriving it from a snapshot join.
func (s *Service) yesterdayParkRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	start, end := pacificYesterdayUTC()

	var rows []RankingRow
	for _, park := range parks {
		if !filter.includes(park) {
			continue
		}
		w, err := s.db.GetAvgShameScoreWindow(ctx, park.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("yesterday park ranking for %s: %w", park.ID, err)
		}
		if w.SampleCount == 0 {
			continue
		}
		row := RankingRow{
			EntityID:       park.ID,
			EntityName:     park.Name,
			ParkID:         park.ID,
			ShameScore:     w.AvgShameScore,
			AvgWaitMinutes: w.AvgWaitMinutes,
			PeakWaitMinutes: w.MaxWaitMinutes,
			RidesReporting: w.SampleCount,
		}
		s.fillParkCurrentState(ctx, &row)
		rows = append(rows, row)
	}
	return rankAndTrim(rows, limit, func(a, b RankingRow) bool {
		return shameOf(a) > shameOf(b)
	}), nil
}

// yesterdayRideRankings reads each ride's already-aggregated daily stats row
// for yesterday's date in that ride's own park timezone, since
// ride_daily_stats is keyed by park-local calendar day.
func (s *Service) yesterdayRideRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	var rows []RankingRow
	for _, park := range parks {
		if !filter.includes(park) {
			continue
		}
		loc, err := time.LoadLocation(park.Timezone)
		if err != nil {
			continue
		}
		statDate := time.Now().In(loc).AddDate(0, 0, -1).Format("2006-01-02")

		daily, err := s.db.ListRideDailyStats(ctx, park.ID, statDate)
		if err != nil {
			return nil, fmt.Errorf("yesterday ride rankings for %s: %w", park.ID, err)
		}
		rides, err := s.db.GetRidesForPark(ctx, park.ID)
		if err != nil {
			return nil, fmt.Errorf("load rides for %s: %w", park.ID, err)
		}
		rideByID := make(map[string]*models.Ride, len(rides))
		for _, r := range rides {
			rideByID[r.ID] = r
		}

		for _, d := range daily {
			ride := rideByID[d.RideID]
			row := RankingRow{
				EntityID:        d.RideID,
				ParkID:          park.ID,
				AvgWaitMinutes:  d.AvgWaitMinutes,
				PeakWaitMinutes: d.PeakWaitMinutes,
				DowntimeHours:   float64(d.DowntimeMinutes) / 60,
				RidesReporting:  1,
			}
			if ride != nil {
				row.EntityName = ride.Name
				row.Tier = ride.Tier
			}
			s.fillRideCurrentState(ctx, &row)
			rows = append(rows, row)
		}
	}
	return rankAndTrim(rows, limit, parkDowntimeLess), nil
}

// pacificReferenceWeek returns the ISO (year, week) of the previous
// completed Pacific week, used as a single cross-park reference even though
// each park's own weekly rollup is keyed by its own local ISO week.
func pacificReferenceWeek() (int, int) {
	now := time.Now().In(pacific)
	weekStart := models.ISOWeekStart(now, pacific).AddDate(0, 0, -7)
	return weekStart.ISOWeek()
}

func (s *Service) lastWeekParkRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	isoYear, isoWeek := pacificReferenceWeek()
	weekly, err := s.db.ListParkWeeklyStats(ctx, isoYear, isoWeek)
	if err != nil {
		return nil, fmt.Errorf("last week park rankings: %w", err)
	}

	var rows []RankingRow
	for _, w := range weekly {
		park := parks[w.ParkID]
		if park == nil || !filter.includes(park) {
			continue
		}
		row := RankingRow{
			EntityID:        w.ParkID,
			EntityName:      park.Name,
			ParkID:          w.ParkID,
			ShameScore:      w.AvgShameScore,
			DowntimeHours:   w.TotalDowntimeHours,
			TrendPercentage: w.TrendVsPreviousWeek,
			RidesReporting:  1,
		}
		s.fillParkCurrentState(ctx, &row)
		rows = append(rows, row)
	}
	return rankAndTrim(rows, limit, parkDowntimeLess), nil
}

func (s *Service) lastWeekRideRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	isoYear, isoWeek := pacificReferenceWeek()

	var rows []RankingRow
	for _, park := range parks {
		if !filter.includes(park) {
			continue
		}
		weekly, err := s.db.ListRideWeeklyStats(ctx, park.ID, isoYear, isoWeek)
		if err != nil {
			return nil, fmt.Errorf("last week ride rankings for %s: %w", park.ID, err)
		}
		rides, err := s.db.GetRidesForPark(ctx, park.ID)
		if err != nil {
			return nil, fmt.Errorf("load rides for %s: %w", park.ID, err)
		}
		rideByID := make(map[string]*models.Ride, len(rides))
		for _, r := range rides {
			rideByID[r.ID] = r
		}

		for _, w := range weekly {
			ride := rideByID[w.RideID]
			row := RankingRow{
				EntityID:        w.RideID,
				ParkID:          park.ID,
				AvgWaitMinutes:  w.AvgWaitMinutes,
				PeakWaitMinutes: w.PeakWaitMinutes,
				DowntimeHours:   float64(w.DowntimeMinutes) / 60,
				TrendPercentage: w.TrendVsPreviousWeek,
				RidesReporting:  w.DaysPresent,
			}
			if ride != nil {
				row.EntityName = ride.Name
				row.Tier = ride.Tier
			}
			s.fillRideCurrentState(ctx, &row)
			rows = append(rows, row)
		}
	}
	return rankAndTrim(rows, limit, parkDowntimeLess), nil
}

// lastMonthParkRankings sums ParkDailyStats over the previous calendar
// month in Pacific time; there is no monthly rollup table, so this reads
// every day's already-aggregated row rather than re-deriving from snapshots.
func (s *Service) lastMonthParkRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	dates := pacificPreviousMonthDates()

	totals := make(map[string]*monthAccum)
	for _, d := range dates {
		daily, err := s.db.ListParkDailyStats(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("last month park rankings for %s: %w", d, err)
		}
		for _, stat := range daily {
			a, ok := totals[stat.ParkID]
			if !ok {
				a = &monthAccum{}
				totals[stat.ParkID] = a
			}
			a.downtimeHours += stat.TotalDowntimeHours
			if stat.AvgShameScore != nil {
				a.shameSum += *stat.AvgShameScore
				a.shameCount++
			}
			a.days++
		}
	}

	var rows []RankingRow
	for parkID, a := range totals {
		park := parks[parkID]
		if park == nil || !filter.includes(park) {
			continue
		}
		row := RankingRow{
			EntityID:       parkID,
			EntityName:     park.Name,
			ParkID:         parkID,
			DowntimeHours:  a.downtimeHours,
			RidesReporting: a.days,
		}
		if a.shameCount > 0 {
			v := a.shameSum / float64(a.shameCount)
			row.ShameScore = &v
		}
		s.fillParkCurrentState(ctx, &row)
		rows = append(rows, row)
	}
	return rankAndTrim(rows, limit, parkDowntimeLess), nil
}

func (s *Service) lastMonthRideRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	dates := pacificPreviousMonthDates()

	totals := make(map[string]*monthAccum)
	rideInfo := make(map[string]*models.Ride)
	for parkID, park := range parks {
		if !filter.includes(park) {
			continue
		}
		rides, err := s.db.GetRidesForPark(ctx, parkID)
		if err != nil {
			return nil, fmt.Errorf("load rides for %s: %w", parkID, err)
		}
		for _, r := range rides {
			rideInfo[r.ID] = r
		}
		for _, d := range dates {
			daily, err := s.db.ListRideDailyStats(ctx, parkID, d)
			if err != nil {
				return nil, fmt.Errorf("last month ride rankings for %s/%s: %w", parkID, d, err)
			}
			for _, stat := range daily {
				a, ok := totals[stat.RideID]
				if !ok {
					a = &monthAccum{parkID: parkID}
					totals[stat.RideID] = a
				}
				a.downtimeHours += float64(stat.DowntimeMinutes) / 60
				if stat.AvgWaitMinutes != nil {
					a.waitSum += *stat.AvgWaitMinutes
					a.waitCount++
				}
				a.days++
			}
		}
	}

	var rows []RankingRow
	for rideID, a := range totals {
		row := RankingRow{
			EntityID:      rideID,
			ParkID:        a.parkID,
			DowntimeHours: a.downtimeHours,
			RidesReporting: a.days,
		}
		if a.waitCount > 0 {
			v := a.waitSum / float64(a.waitCount)
			row.AvgWaitMinutes = &v
		}
		if ride := rideInfo[rideID]; ride != nil {
			row.EntityName = ride.Name
			row.Tier = ride.Tier
		}
		s.fillRideCurrentState(ctx, &row)
		rows = append(rows, row)
	}
	return rankAndTrim(rows, limit, parkDowntimeLess), nil
}

type monthAccum struct {
	parkID        string
	downtimeHours float64
	shameSum      float64
	shameCount    int
	waitSum       float64
	waitCount     int
	days          int
}

func shameOf(r RankingRow) float64 {
	if r.ShameScore == nil {
		return 0
	}
	return *r.ShameScore
}

func pacificYesterdayUTC() (start, end time.Time) {
	now := time.Now().In(pacific)
	yesterday := now.AddDate(0, 0, -1)
	start = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, pacific)
	end = start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// pacificPreviousMonthDates returns every calendar date (YYYY-MM-DD) in the
// previous full Pacific calendar month.
func pacificPreviousMonthDates() []string {
	now := time.Now().In(pacific)
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, pacific)
	lastOfPrevMonth := firstOfThisMonth.AddDate(0, 0, -1)
	firstOfPrevMonth := time.Date(lastOfPrevMonth.Year(), lastOfPrevMonth.Month(), 1, 0, 0, 0, 0, pacific)

	var dates []string
	for d := firstOfPrevMonth; d.Before(firstOfThisMonth); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates
}
