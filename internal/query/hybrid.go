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

// todayWindows computes the hybrid TODAY query's two windows (§4.7): the
// completed-hours window spans Pacific midnight through the start of the
// current UTC hour, and the current-hour window spans from there through
// now. end is exclusive everywhere except the current-hour window, which is
// widened by a second to keep "now" itself inside it.
func todayWindows() (dayStartUTC, hourStartUTC, nowUTC time.Time) {
	now := time.Now()
	nowLocal := now.In(pacific)
	dayStartPacific := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, pacific)
	return dayStartPacific.UTC(), now.UTC().Truncate(time.Hour), now.UTC()
}

func (s *Service) todayParkRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	dayStartUTC, hourStartUTC, nowUTC := todayWindows()

	var rows []RankingRow
	for _, park := range parks {
		if !filter.includes(park) {
			continue
		}

		var (
			downtimeHours              float64
			shameWeightedSum, waitSum  float64
			shameWeight, waitSamples   int
			snapshotCount              int
			ridesDown                  int
			maxWait                    *int
		)

		if s.cfg.UseHourlyTables {
			hourly, err := s.db.ListParkHourlyStatsRange(ctx, park.ID, dayStartUTC, hourStartUTC)
			if err != nil {
				return nil, fmt.Errorf("today park rankings, completed hours for %s: %w", park.ID, err)
			}
			for _, h := range hourly {
				downtimeHours += h.TotalDowntimeHours
				snapshotCount += h.SnapshotCount
				if h.AvgShameScore != nil {
					shameWeightedSum += *h.AvgShameScore * float64(h.SnapshotCount)
					shameWeight += h.SnapshotCount
				}
				if h.AvgWaitMinutes != nil {
					waitSum += *h.AvgWaitMinutes
					waitSamples++
				}
				if h.MaxWaitMinutes != nil && (maxWait == nil || *h.MaxWaitMinutes > *maxWait) {
					v := *h.MaxWaitMinutes
					maxWait = &v
				}
				if h.RidesDown > ridesDown {
					ridesDown = h.RidesDown
				}
			}

			raw, err := s.db.AggregateRawWindowPark(ctx, park.ID, hourStartUTC, nowUTC.Add(time.Second))
			if err != nil {
				return nil, fmt.Errorf("today park rankings, current hour for %s: %w", park.ID, err)
			}
			if raw.SnapshotCount > 0 {
				snapshotCount += raw.SnapshotCount
				if raw.AvgShameScore != nil {
					shameWeightedSum += *raw.AvgShameScore * float64(raw.SnapshotCount)
					shameWeight += raw.SnapshotCount
				}
				if raw.AvgWaitMinutes != nil {
					waitSum += *raw.AvgWaitMinutes
					waitSamples++
				}
				if raw.MaxWaitMinutes != nil && (maxWait == nil || *raw.MaxWaitMinutes > *maxWait) {
					v := *raw.MaxWaitMinutes
					maxWait = &v
				}
			}

			// Park-level downtime hours and rides_down aren't computed by
			// AggregateRawWindowPark (it only reads park_activity_snapshots);
			// the current hour's contribution is derived from the same
			// per-ride raw aggregation todayRideRankings uses, the way
			// aggregateParkHour derives its persisted counterpart from
			// already-computed per-ride aggregates.
			rawRides, err := s.db.AggregateRawWindowRides(ctx, park.ID, hourStartUTC, nowUTC.Add(time.Second), s.snapshotIntervalMinutes)
			if err != nil {
				return nil, fmt.Errorf("today park rankings, current hour rides for %s: %w", park.ID, err)
			}
			var rawRidesDown int
			for _, h := range rawRides {
				downtimeHours += h.DowntimeHours
				if h.DownSnapshots > 0 {
					rawRidesDown++
				}
			}
			if rawRidesDown > ridesDown {
				ridesDown = rawRidesDown
			}
		} else {
			// Hourly-table outage fallback: the raw-snapshot path services
			// the whole day instead of just the current hour.
			raw, err := s.db.AggregateRawWindowPark(ctx, park.ID, dayStartUTC, nowUTC.Add(time.Second))
			if err != nil {
				return nil, fmt.Errorf("today park rankings, fallback for %s: %w", park.ID, err)
			}
			snapshotCount = raw.SnapshotCount
			if raw.AvgShameScore != nil {
				shameWeightedSum = *raw.AvgShameScore * float64(raw.SnapshotCount)
				shameWeight = raw.SnapshotCount
			}
			if raw.AvgWaitMinutes != nil {
				waitSum = *raw.AvgWaitMinutes
				waitSamples = 1
			}
			maxWait = raw.MaxWaitMinutes

			rawRides, err := s.db.AggregateRawWindowRides(ctx, park.ID, dayStartUTC, nowUTC.Add(time.Second), s.snapshotIntervalMinutes)
			if err != nil {
				return nil, fmt.Errorf("today park rankings, fallback rides for %s: %w", park.ID, err)
			}
			for _, h := range rawRides {
				downtimeHours += h.DowntimeHours
				if h.DownSnapshots > 0 {
					ridesDown++
				}
			}
		}

		if snapshotCount == 0 {
			continue
		}

		row := RankingRow{
			EntityID:        park.ID,
			EntityName:      park.Name,
			ParkID:          park.ID,
			DowntimeHours:   downtimeHours,
			PeakWaitMinutes: maxWait,
			RidesReporting:  snapshotCount,
			RidesDown:       ridesDown,
		}
		if shameWeight > 0 {
			v := shameWeightedSum / float64(shameWeight)
			row.ShameScore = &v
		}
		if waitSamples > 0 {
			v := waitSum / float64(waitSamples)
			row.AvgWaitMinutes = &v
		}
		s.fillParkCurrentState(ctx, &row)
		rows = append(rows, row)
	}
	return rankAndTrim(rows, limit, func(a, b RankingRow) bool {
		return shameOf(a) > shameOf(b)
	}), nil
}

func (s *Service) todayRideRankings(ctx context.Context, parks map[string]*models.Park, filter Filter, limit int) ([]RankingRow, error) {
	dayStartUTC, hourStartUTC, nowUTC := todayWindows()

	var rows []RankingRow
	for _, park := range parks {
		if !filter.includes(park) {
			continue
		}
		rides, err := s.db.GetRidesForPark(ctx, park.ID)
		if err != nil {
			return nil, fmt.Errorf("today ride rankings, load rides for %s: %w", park.ID, err)
		}

		combined := make(map[string]*rideAccum, len(rides))
		for _, r := range rides {
			combined[r.ID] = &rideAccum{ride: r}
		}

		if s.cfg.UseHourlyTables {
			for _, r := range rides {
				hourly, err := s.db.ListRideHourlyStatsRange(ctx, r.ID, dayStartUTC, hourStartUTC)
				if err != nil {
					return nil, fmt.Errorf("today ride rankings, completed hours for %s: %w", r.ID, err)
				}
				a := combined[r.ID]
				for _, h := range hourly {
					a.downtimeHours += h.DowntimeHours
					a.snapshotCount += h.SnapshotCount
				}
			}

			raw, err := s.db.AggregateRawWindowRides(ctx, park.ID, hourStartUTC, nowUTC.Add(time.Second), s.snapshotIntervalMinutes)
			if err != nil {
				return nil, fmt.Errorf("today ride rankings, current hour for %s: %w", park.ID, err)
			}
			for rideID, h := range raw {
				a, ok := combined[rideID]
				if !ok {
					continue
				}
				a.downtimeHours += h.DowntimeHours
				a.snapshotCount += h.SnapshotCount
			}
		} else {
			raw, err := s.db.AggregateRawWindowRides(ctx, park.ID, dayStartUTC, nowUTC.Add(time.Second), s.snapshotIntervalMinutes)
			if err != nil {
				return nil, fmt.Errorf("today ride rankings, fallback for %s: %w", park.ID, err)
			}
			for rideID, h := range raw {
				a, ok := combined[rideID]
				if !ok {
					continue
				}
				a.downtimeHours = h.DowntimeHours
				a.snapshotCount = h.SnapshotCount
			}
		}

		for rideID, a := range combined {
			if a.snapshotCount == 0 {
				continue
			}
			row := RankingRow{
				EntityID:       rideID,
				EntityName:     a.ride.Name,
				ParkID:         park.ID,
				Tier:           a.ride.Tier,
				DowntimeHours:  a.downtimeHours,
				RidesReporting: a.snapshotCount,
			}
			s.fillRideCurrentState(ctx, &row)
			rows = append(rows, row)
		}
	}
	return rankAndTrim(rows, limit, parkDowntimeLess), nil
}

type rideAccum struct {
	ride          *models.Ride
	downtimeHours float64
	snapshotCount int
}
