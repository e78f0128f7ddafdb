// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package database

import (
	"context"
	"fmt"
	"time"
)

// MaterializeLiveRankings recomputes the park and ride live-rankings tables
// in one pass (spec.md §4.6): truncate the staging twins, compute current
// state over a join of each ride's latest snapshot within windowHours, its
// park's matching activity snapshot, and tier weights, insert into staging,
// then atomically rotate staging into place with a single 3-way rename so
// readers never see an empty or half-written table. dormantThreshold excludes
// rides with no operating status in that long from the ride leaderboard
// (models.Ride.DormantSince, §3).
func (db *DB) MaterializeLiveRankings(ctx context.Context, windowHours int, dormantThreshold time.Duration) error {
	if windowHours <= 0 {
		windowHours = 2
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rankings materialization: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM park_live_rankings_staging`); err != nil {
		return fmt.Errorf("truncate park rankings staging: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ride_live_rankings_staging`); err != nil {
		return fmt.Errorf("truncate ride rankings staging: %w", err)
	}

	now := time.Now().UTC()
	windowStart := now.Add(-time.Duration(windowHours) * time.Hour)
	dormantCutoff := now.Add(-dormantThreshold)

	// latest_ride is each ride's most recent snapshot inside the window,
	// joined back to the park activity snapshot recorded at the same
	// instant (recorded_at equality is the cycle-join key per §5). A ride
	// is excluded from the ranking entirely once its last known-operating
	// timestamp is older than dormantCutoff, not merely filtered from the
	// current window, so a ride that went permanently quiet doesn't
	// reappear the moment it happens to get one more polled snapshot.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ride_live_rankings_staging
			(ride_id, ride_name, park_id, period, rank, weighted_downtime_hours, downtime_hours, tier, materialized_at)
		WITH latest_ride AS (
			SELECT s.ride_id, s.park_id, s.recorded_at, s.status, s.computed_is_open,
			       row_number() OVER (PARTITION BY s.ride_id ORDER BY s.recorded_at DESC) AS rn
			FROM ride_status_snapshots s
			WHERE s.recorded_at >= ? AND s.recorded_at <= ?
		),
		ride_down AS (
			SELECT lr.ride_id, lr.park_id, r.name, r.tier,
			       CASE WHEN p.is_disney OR p.is_universal
			            THEN lr.status = 'DOWN'
			            ELSE lr.status IN ('DOWN', 'CLOSED') OR (lr.status IS NULL AND NOT lr.computed_is_open)
			       END AS is_down
			FROM latest_ride lr
			JOIN rides r ON r.id = lr.ride_id
			JOIN parks p ON p.id = lr.park_id
			WHERE lr.rn = 1 AND r.active
			  AND (r.last_operated_at IS NULL OR r.last_operated_at >= ?)
		)
		SELECT ride_id, name, park_id, 'live',
		       row_number() OVER (ORDER BY (CASE WHEN is_down THEN tier_weight ELSE 0 END) DESC, ride_id) AS rank,
		       CASE WHEN is_down THEN tier_weight ELSE 0 END AS weighted_downtime_hours,
		       CASE WHEN is_down THEN 1 ELSE 0 END AS downtime_hours,
		       tier,
		       CURRENT_TIMESTAMP
		FROM (
			SELECT ride_id, name, park_id, tier, is_down,
			       CASE tier WHEN 1 THEN 3 WHEN 3 THEN 1 ELSE 2 END AS tier_weight
			FROM ride_down
		) weighted
		WHERE is_down
		ORDER BY weighted_downtime_hours DESC`,
		windowStart, now, dormantCutoff); err != nil {
		return fmt.Errorf("materialize ride live rankings: %w", err)
	}

	// latest_park is each park's most recent activity snapshot inside the
	// window; shame_score is read as stored (never recomputed from a
	// re-join of ride snapshots, per §4.7's YESTERDAY rule applied here
	// too — the stored value is already the authoritative per-instant
	// figure the collector wrote).
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO park_live_rankings_staging
			(park_id, park_name, period, rank, shame_score, rides_down, rides_tracked, materialized_at)
		WITH latest_park AS (
			SELECT a.park_id, a.recorded_at, a.shame_score, a.rides_closed, a.rides_tracked,
			       row_number() OVER (PARTITION BY a.park_id ORDER BY a.recorded_at DESC) AS rn
			FROM park_activity_snapshots a
			WHERE a.recorded_at >= ? AND a.recorded_at <= ? AND a.park_appears_open = true
		)
		SELECT lp.park_id, p.name, 'live',
		       row_number() OVER (ORDER BY coalesce(lp.shame_score, 0) DESC, lp.park_id) AS rank,
		       coalesce(lp.shame_score, 0), lp.rides_closed, lp.rides_tracked, CURRENT_TIMESTAMP
		FROM latest_park lp
		JOIN parks p ON p.id = lp.park_id
		WHERE lp.rn = 1
		ORDER BY coalesce(lp.shame_score, 0) DESC`,
		windowStart, now); err != nil {
		return fmt.Errorf("materialize park live rankings: %w", err)
	}

	// Atomic 3-way rotation: live -> old, staging -> live, old -> staging.
	// All three renames run inside the same transaction as a single commit,
	// so a reader never observes an intermediate state (§4.6 step 4).
	renames := []struct{ from, to string }{
		{"park_live_rankings", "park_live_rankings_old"},
		{"park_live_rankings_staging", "park_live_rankings"},
		{"park_live_rankings_old", "park_live_rankings_staging"},
		{"ride_live_rankings", "ride_live_rankings_old"},
		{"ride_live_rankings_staging", "ride_live_rankings"},
		{"ride_live_rankings_old", "ride_live_rankings_staging"},
	}
	for _, r := range renames {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, r.from, r.to)); err != nil {
			return fmt.Errorf("rotate %s -> %s: %w", r.from, r.to, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rankings materialization: %w", err)
	}
	committed = true

	db.bumpRankingsVersion()
	return nil
}
