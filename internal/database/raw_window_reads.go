// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/parkwatch/internal/models"
)

// AggregateRawWindowRides computes the same per-ride fields AggregateHour
// persists, but in-memory and scoped to an arbitrary [start, end) window
// instead of a full UTC hour. The hybrid TODAY query (§4.7) uses this for
// the current, still in-progress hour, where a durable hourly_stats row
// would be premature.
func (db *DB) AggregateRawWindowRides(ctx context.Context, parkID string, start, end time.Time, intervalMinutes int) (map[string]*models.RideHourlyStats, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = 10
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.ride_id, s.status, s.computed_is_open, r.tier, p.is_disney, p.is_universal
		FROM ride_status_snapshots s
		JOIN rides r ON r.id = s.ride_id
		JOIN parks p ON p.id = s.park_id
		WHERE s.park_id = ? AND s.recorded_at >= ? AND s.recorded_at < ?
		ORDER BY s.ride_id, s.recorded_at`, parkID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query raw window snapshots for %s: %w", parkID, err)
	}
	defer closeQuietly(rows)

	aggs := make(map[string]*hourlyRideAgg)
	var order []string
	for rows.Next() {
		var rideID string
		var status sql.NullString
		var computedIsOpen bool
		var tier int
		var isDisney, isUniversal bool
		if err := rows.Scan(&rideID, &status, &computedIsOpen, &tier, &isDisney, &isUniversal); err != nil {
			return nil, fmt.Errorf("scan raw window snapshot: %w", err)
		}

		a, ok := aggs[rideID]
		if !ok {
			a = &hourlyRideAgg{parkID: parkID, weight: models.TierWeight(tier)}
			aggs[rideID] = a
			order = append(order, rideID)
		}

		rs := models.RideStatus(status.String)
		a.total++
		if rs == models.StatusOperating {
			a.operating++
		}
		snap := models.RideStatusSnapshot{Status: rs, ComputedIsOpen: computedIsOpen}
		if snap.IsDown(isDisney || isUniversal) {
			a.down++
			a.currentDownRun++
			if a.currentDownRun > a.longestDownRun {
				a.longestDownRun = a.currentDownRun
			}
		} else {
			a.currentDownRun = 0
		}
		if a.haveLast && rs != a.lastStatus {
			a.statusChanges++
		}
		a.lastStatus = rs
		a.haveLast = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]*models.RideHourlyStats, len(order))
	for _, rideID := range order {
		a := aggs[rideID]
		downtimeHours := float64(a.down) * float64(intervalMinutes) / 60
		uptimePct := 0.0
		if a.total > 0 {
			uptimePct = float64(a.operating) / float64(a.total) * 100
		}
		out[rideID] = &models.RideHourlyStats{
			RideID:                 rideID,
			ParkID:                 a.parkID,
			HourStartUTC:           start,
			OperatingSnapshots:     a.operating,
			DownSnapshots:          a.down,
			DowntimeHours:          downtimeHours,
			WeightedDowntimeHours:  downtimeHours * float64(a.weight),
			EffectiveWeight:        a.weight,
			RideOperated:           a.operating > 0,
			SnapshotCount:          a.total,
			UptimePercentage:       uptimePct,
			StatusChanges:          a.statusChanges,
			LongestDowntimeMinutes: a.longestDownRun * intervalMinutes,
		}
	}
	return out, nil
}

// AggregateRawWindowPark mirrors aggregateParkHour for an arbitrary window,
// reading directly from park_activity_snapshots rather than a persisted
// hourly row.
func (db *DB) AggregateRawWindowPark(ctx context.Context, parkID string, start, end time.Time) (*models.ParkHourlyStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT AVG(shame_score), AVG(avg_wait_time), MAX(max_wait_time),
		       SUM(CASE WHEN park_appears_open THEN 1 ELSE 0 END), COUNT(*)
		FROM park_activity_snapshots
		WHERE park_id = ? AND recorded_at >= ? AND recorded_at < ?`, parkID, start, end)

	var avgShame, avgWait sql.NullFloat64
	var maxWait sql.NullInt64
	var openCount, total int
	if err := row.Scan(&avgShame, &avgWait, &maxWait, &openCount, &total); err != nil {
		return nil, fmt.Errorf("aggregate raw window park %s: %w", parkID, err)
	}

	s := &models.ParkHourlyStats{
		ParkID:        parkID,
		HourStartUTC:  start,
		ParkWasOpen:   openCount > 0,
		SnapshotCount: total,
	}
	if avgShame.Valid {
		v := avgShame.Float64
		s.AvgShameScore = &v
	}
	if avgWait.Valid {
		v := avgWait.Float64
		s.AvgWaitMinutes = &v
	}
	if maxWait.Valid {
		v := int(maxWait.Int64)
		s.MaxWaitMinutes = &v
	}
	return s, nil
}
