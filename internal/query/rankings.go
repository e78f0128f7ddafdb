// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/parkwatch/internal/models"
)

// RankingRow is the uniform field vocabulary every ranking query returns
// regardless of period or entity kind (§4.7); the field set is part of the
// public API and is exercised by the API-layer tests that assert on it.
type RankingRow struct {
	EntityID        string   `json:"entity_id"`
	EntityName      string   `json:"entity_name"`
	ParkID          string   `json:"park_id"`
	Rank            int      `json:"rank"`
	AvgWaitMinutes  *float64 `json:"avg_wait_minutes"`
	PeakWaitMinutes *int     `json:"peak_wait_minutes"`
	TrendPercentage *float64 `json:"trend_percentage"`
	Tier            int      `json:"tier"`
	RidesReporting  int      `json:"rides_reporting"`
	CurrentIsOpen   bool     `json:"current_is_open"`
	CurrentStatus   string   `json:"current_status"`
	ParkIsOpen      bool     `json:"park_is_open"`
	DowntimeHours   float64  `json:"downtime_hours"`
	ShameScore      *float64 `json:"shame_score,omitempty"`
	RidesDown       int      `json:"rides_down,omitempty"`
}

func (s *Service) parksByID(ctx context.Context) (map[string]*models.Park, error) {
	parks, err := s.db.GetActiveParks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active parks: %w", err)
	}
	out := make(map[string]*models.Park, len(parks))
	for _, p := range parks {
		out[p.ID] = p
	}
	return out, nil
}

// ParkRankings returns the park leaderboard for period, narrowed by filter
// and capped at limit.
func (s *Service) ParkRankings(ctx context.Context, period models.RankingPeriod, filter Filter, limit int) ([]RankingRow, error) {
	if !models.IsValidRankingPeriod(period) {
		return nil, fmt.Errorf("invalid ranking period %q", period)
	}
	key := fmt.Sprintf("park-rankings:%s:%s:%d", period, filter, limit)
	if cached, ok := s.cacheGet(key); ok {
		return cached.([]RankingRow), nil
	}

	parks, err := s.parksByID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []RankingRow
	switch period {
	case models.PeriodLive:
		rows, err = s.liveParkRankings(ctx, parks, filter, limit)
	case models.PeriodToday:
		rows, err = s.todayParkRankings(ctx, parks, filter, limit)
	case models.PeriodYesterday:
		rows, err = s.yesterdayParkRankings(ctx, parks, filter, limit)
	case models.PeriodLastWeek:
		rows, err = s.lastWeekParkRankings(ctx, parks, filter, limit)
	case models.PeriodLastMonth:
		rows, err = s.lastMonthParkRankings(ctx, parks, filter, limit)
	}
	if err != nil {
		return nil, err
	}
	s.cacheSet(key, rows)
	return rows, nil
}

// RideRankings returns the ride downtime leaderboard for period, narrowed by
// filter and capped at limit. Rows span every park (§4.7's common contract
// applies the same filter/limit shape ride_live_rankings already uses).
func (s *Service) RideRankings(ctx context.Context, period models.RankingPeriod, filter Filter, limit int) ([]RankingRow, error) {
	if !models.IsValidRankingPeriod(period) {
		return nil, fmt.Errorf("invalid ranking period %q", period)
	}
	key := fmt.Sprintf("ride-rankings:%s:%s:%d", period, filter, limit)
	if cached, ok := s.cacheGet(key); ok {
		return cached.([]RankingRow), nil
	}

	parks, err := s.parksByID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []RankingRow
	switch period {
	case models.PeriodLive:
		rows, err = s.liveRideRankings(ctx, parks, filter, limit)
	case models.PeriodToday:
		rows, err = s.todayRideRankings(ctx, parks, filter, limit)
	case models.PeriodYesterday:
		rows, err = s.yesterdayRideRankings(ctx, parks, filter, limit)
	case models.PeriodLastWeek:
		rows, err = s.lastWeekRideRankings(ctx, parks, filter, limit)
	case models.PeriodLastMonth:
		rows, err = s.lastMonthRideRankings(ctx, parks, filter, limit)
	}
	if err != nil {
		return nil, err
	}
	s.cacheSet(key, rows)
	return rows, nil
}

func (s *Service) liveParkRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	materialized, err := s.db.GetParkLiveRankings(ctx, models.PeriodLive, limit*4)
	if err != nil {
		return nil, err
	}
	var out []RankingRow
	for _, m := range materialized {
		park := parks[m.ParkID]
		if park != nil && !filter.includes(park) {
			continue
		}
		shame := m.ShameScore
		row := RankingRow{
			EntityID:       m.ParkID,
			EntityName:     m.ParkName,
			ParkID:         m.ParkID,
			Rank:           m.Rank,
			ShameScore:     &shame,
			RidesReporting: m.RidesTracked,
		}
		s.fillParkCurrentState(ctx, &row)
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Service) liveRideRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	materialized, err := s.db.GetRideLiveRankings(ctx, models.PeriodLive, limit*4)
	if err != nil {
		return nil, err
	}
	var out []RankingRow
	for _, m := range materialized {
		park := parks[m.ParkID]
		if park != nil && !filter.includes(park) {
			continue
		}
		downtime := m.DowntimeHours
		row := RankingRow{
			EntityID:      m.RideID,
			EntityName:    m.RideName,
			ParkID:        m.ParkID,
			Rank:          m.Rank,
			Tier:          m.Tier,
			DowntimeHours: downtime,
		}
		s.fillRideCurrentState(ctx, &row)
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Service) fillParkCurrentState(ctx context.Context, row *RankingRow) {
	activity, found, err := s.db.GetLatestParkActivity(ctx, row.ParkID)
	if err != nil || !found {
		return
	}
	row.ParkIsOpen = activity.ParkAppearsOpen
	row.CurrentIsOpen = activity.ParkAppearsOpen
	row.AvgWaitMinutes = activity.AvgWaitMinutes
	row.PeakWaitMinutes = activity.MaxWaitMinutes
}

func (s *Service) fillRideCurrentState(ctx context.Context, row *RankingRow) {
	states, err := s.db.GetLatestRideStates(ctx, row.ParkID)
	if err != nil {
		return
	}
	st, ok := states[row.EntityID]
	if !ok {
		return
	}
	row.CurrentIsOpen = st.IsOpen
	row.CurrentStatus = string(st.Status)

	activity, found, actErr := s.db.GetLatestParkActivity(ctx, row.ParkID)
	if actErr == nil && found {
		row.ParkIsOpen = activity.ParkAppearsOpen
	}
}

func rankAndTrim(rows []RankingRow, limit int, less func(a, b RankingRow) bool) []RankingRow {
	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func parkDowntimeLess(a, b RankingRow) bool { return a.DowntimeHours > b.DowntimeHours }

func statDateFor(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
