// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/parkwatch/internal/models"
)

// GetParkLiveRankings returns the materialized park leaderboard for a
// period, ordered by rank. Populated wholesale by MaterializeLiveRankings,
// never by incremental writes.
func (db *DB) GetParkLiveRankings(ctx context.Context, period models.RankingPeriod, limit int) ([]*models.ParkLiveRankings, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT park_id, park_name, period, rank, shame_score, rides_down,
		       rides_tracked, materialized_at
		FROM park_live_rankings WHERE period = ? ORDER BY rank LIMIT ?`, string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("query park live rankings: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.ParkLiveRankings
	for rows.Next() {
		p := &models.ParkLiveRankings{}
		if err := rows.Scan(&p.ParkID, &p.ParkName, &p.Period, &p.Rank, &p.ShameScore,
			&p.RidesDown, &p.RidesTracked, &p.MaterializedAt); err != nil {
			return nil, fmt.Errorf("scan park live ranking: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetRideLiveRankings returns the materialized per-ride downtime
// leaderboard for a period, ordered by rank.
func (db *DB) GetRideLiveRankings(ctx context.Context, period models.RankingPeriod, limit int) ([]*models.RideLiveRankings, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT ride_id, ride_name, park_id, period, rank, weighted_downtime_hours,
		       downtime_hours, tier, materialized_at
		FROM ride_live_rankings WHERE period = ? ORDER BY rank LIMIT ?`, string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("query ride live rankings: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.RideLiveRankings
	for rows.Next() {
		r := &models.RideLiveRankings{}
		if err := rows.Scan(&r.RideID, &r.RideName, &r.ParkID, &r.Period, &r.Rank,
			&r.WeightedDowntimeHours, &r.DowntimeHours, &r.Tier, &r.MaterializedAt); err != nil {
			return nil, fmt.Errorf("scan ride live ranking: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetParkDailyStats returns one park's rollup for a single local calendar
// date (YYYY-MM-DD), or found=false if the aggregator has not run for it
// yet.
func (db *DB) GetParkDailyStats(ctx context.Context, parkID, statDate string) (stats *models.ParkDailyStats, found bool, err error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT park_id, stat_date, avg_shame_score, avg_wait_time, max_wait_time,
		       total_downtime_hours, rides_reporting
		FROM park_daily_stats WHERE park_id = ? AND stat_date = ?`, parkID, statDate)

	s := &models.ParkDailyStats{}
	if err := row.Scan(&s.ParkID, &s.StatDate, &s.AvgShameScore, &s.AvgWaitMinutes,
		&s.MaxWaitMinutes, &s.TotalDowntimeHours, &s.RidesReporting); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get park daily stats %s/%s: %w", parkID, statDate, err)
	}
	return s, true, nil
}

// ListParkDailyStats returns every park's rollup for a single local date,
// used to rank parks for a day-granularity period.
func (db *DB) ListParkDailyStats(ctx context.Context, statDate string) ([]*models.ParkDailyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT park_id, stat_date, avg_shame_score, avg_wait_time, max_wait_time,
		       total_downtime_hours, rides_reporting
		FROM park_daily_stats WHERE stat_date = ?`, statDate)
	if err != nil {
		return nil, fmt.Errorf("query park daily stats for %s: %w", statDate, err)
	}
	defer closeQuietly(rows)

	var out []*models.ParkDailyStats
	for rows.Next() {
		s := &models.ParkDailyStats{}
		if err := rows.Scan(&s.ParkID, &s.StatDate, &s.AvgShameScore, &s.AvgWaitMinutes,
			&s.MaxWaitMinutes, &s.TotalDowntimeHours, &s.RidesReporting); err != nil {
			return nil, fmt.Errorf("scan park daily stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRideDailyStats returns every ride rollup for a park on a single local
// date, used to rank rides for a day-granularity period.
func (db *DB) ListRideDailyStats(ctx context.Context, parkID, statDate string) ([]*models.RideDailyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT ride_id, park_id, stat_date, uptime_minutes, downtime_minutes,
		       operating_hours_minutes, avg_wait_time, min_wait_time, max_wait_time,
		       peak_wait_time, status_changes, longest_downtime_minutes
		FROM ride_daily_stats WHERE park_id = ? AND stat_date = ?`, parkID, statDate)
	if err != nil {
		return nil, fmt.Errorf("query ride daily stats for %s/%s: %w", parkID, statDate, err)
	}
	defer closeQuietly(rows)

	var out []*models.RideDailyStats
	for rows.Next() {
		s := &models.RideDailyStats{}
		if err := rows.Scan(&s.RideID, &s.ParkID, &s.StatDate, &s.UptimeMinutes,
			&s.DowntimeMinutes, &s.OperatingHoursMinutes, &s.AvgWaitMinutes,
			&s.MinWaitMinutes, &s.MaxWaitMinutes, &s.PeakWaitMinutes, &s.StatusChanges,
			&s.LongestDowntimeMinutes); err != nil {
			return nil, fmt.Errorf("scan ride daily stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListParkWeeklyStats returns every park's rollup for an ISO (year, week),
// used for the last_week period and for park-trend comparisons.
func (db *DB) ListParkWeeklyStats(ctx context.Context, isoYear, isoWeek int) ([]*models.ParkWeeklyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT park_id, iso_year, iso_week, week_start_date, avg_shame_score,
		       total_downtime_hours, trend_vs_previous_week
		FROM park_weekly_stats WHERE iso_year = ? AND iso_week = ?`, isoYear, isoWeek)
	if err != nil {
		return nil, fmt.Errorf("query park weekly stats for %d-W%d: %w", isoYear, isoWeek, err)
	}
	defer closeQuietly(rows)

	var out []*models.ParkWeeklyStats
	for rows.Next() {
		s := &models.ParkWeeklyStats{}
		if err := rows.Scan(&s.ParkID, &s.ISOYear, &s.ISOWeek, &s.WeekStartDate,
			&s.AvgShameScore, &s.TotalDowntimeHours, &s.TrendVsPreviousWeek); err != nil {
			return nil, fmt.Errorf("scan park weekly stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRideWeeklyStats returns every ride rollup for a park for an ISO
// (year, week).
func (db *DB) ListRideWeeklyStats(ctx context.Context, parkID string, isoYear, isoWeek int) ([]*models.RideWeeklyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT ride_id, park_id, iso_year, iso_week, week_start_date, uptime_minutes,
		       downtime_minutes, operating_hours_minutes, avg_wait_time, peak_wait_time,
		       status_changes, trend_vs_previous_week, days_present
		FROM ride_weekly_stats WHERE park_id = ? AND iso_year = ? AND iso_week = ?`,
		parkID, isoYear, isoWeek)
	if err != nil {
		return nil, fmt.Errorf("query ride weekly stats for %s %d-W%d: %w", parkID, isoYear, isoWeek, err)
	}
	defer closeQuietly(rows)

	var out []*models.RideWeeklyStats
	for rows.Next() {
		s := &models.RideWeeklyStats{}
		if err := rows.Scan(&s.RideID, &s.ParkID, &s.ISOYear, &s.ISOWeek, &s.WeekStartDate,
			&s.UptimeMinutes, &s.DowntimeMinutes, &s.OperatingHoursMinutes, &s.AvgWaitMinutes,
			&s.PeakWaitMinutes, &s.StatusChanges, &s.TrendVsPreviousWeek, &s.DaysPresent); err != nil {
			return nil, fmt.Errorf("scan ride weekly stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRideHourlyStatsRange returns a ride's hourly rollups covering
// [startUTC, endUTC), ordered by hour, used for both the hybrid TODAY query
// and the ride-waittime-history chart.
func (db *DB) ListRideHourlyStatsRange(ctx context.Context, rideID string, startUTC, endUTC time.Time) ([]*models.RideHourlyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT ride_id, park_id, hour_start_utc, operating_snapshots, down_snapshots,
		       downtime_hours, weighted_downtime_hours, effective_weight, ride_operated,
		       snapshot_count, uptime_percentage, status_changes, longest_downtime_minutes
		FROM ride_hourly_stats
		WHERE ride_id = ? AND hour_start_utc >= ? AND hour_start_utc < ?
		ORDER BY hour_start_utc`, rideID, startUTC, endUTC)
	if err != nil {
		return nil, fmt.Errorf("query ride hourly stats for %s: %w", rideID, err)
	}
	defer closeQuietly(rows)

	var out []*models.RideHourlyStats
	for rows.Next() {
		s := &models.RideHourlyStats{}
		if err := rows.Scan(&s.RideID, &s.ParkID, &s.HourStartUTC, &s.OperatingSnapshots,
			&s.DownSnapshots, &s.DowntimeHours, &s.WeightedDowntimeHours, &s.EffectiveWeight,
			&s.RideOperated, &s.SnapshotCount, &s.UptimePercentage, &s.StatusChanges,
			&s.LongestDowntimeMinutes); err != nil {
			return nil, fmt.Errorf("scan ride hourly stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListParkHourlyStatsRange returns a park's hourly rollups covering
// [startUTC, endUTC), ordered by hour, the park-level counterpart of
// ListRideHourlyStatsRange used by the hybrid TODAY query's completed-hours
// window (§4.7).
func (db *DB) ListParkHourlyStatsRange(ctx context.Context, parkID string, startUTC, endUTC time.Time) ([]*models.ParkHourlyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT park_id, hour_start_utc, avg_shame_score, avg_wait_time, max_wait_time,
		       park_was_open, snapshot_count, total_downtime_hours, rides_down
		FROM park_hourly_stats
		WHERE park_id = ? AND hour_start_utc >= ? AND hour_start_utc < ?
		ORDER BY hour_start_utc`, parkID, startUTC, endUTC)
	if err != nil {
		return nil, fmt.Errorf("query park hourly stats for %s: %w", parkID, err)
	}
	defer closeQuietly(rows)

	var out []*models.ParkHourlyStats
	for rows.Next() {
		s := &models.ParkHourlyStats{}
		if err := rows.Scan(&s.ParkID, &s.HourStartUTC, &s.AvgShameScore, &s.AvgWaitMinutes,
			&s.MaxWaitMinutes, &s.ParkWasOpen, &s.SnapshotCount, &s.TotalDowntimeHours,
			&s.RidesDown); err != nil {
			return nil, fmt.Errorf("scan park hourly stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RideCurrentState is a ride's most recently observed status, used to
// populate the uniform ranking vocabulary's current_is_open/current_status
// fields (§4.7) without joining the full snapshot history.
type RideCurrentState struct {
	Status   models.RideStatus
	IsOpen   bool
	Recorded time.Time
}

// GetLatestRideStates returns the most recent snapshot for every ride in a
// park, keyed by ride ID.
func (db *DB) GetLatestRideStates(ctx context.Context, parkID string) (map[string]RideCurrentState, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.ride_id, s.status, s.computed_is_open, s.recorded_at
		FROM ride_status_snapshots s
		JOIN (
			SELECT ride_id, MAX(recorded_at) AS latest
			FROM ride_status_snapshots WHERE park_id = ?
			GROUP BY ride_id
		) latest ON latest.ride_id = s.ride_id AND latest.latest = s.recorded_at`, parkID)
	if err != nil {
		return nil, fmt.Errorf("query latest ride states for %s: %w", parkID, err)
	}
	defer closeQuietly(rows)

	out := make(map[string]RideCurrentState)
	for rows.Next() {
		var rideID string
		var status sql.NullString
		var st RideCurrentState
		if err := rows.Scan(&rideID, &status, &st.IsOpen, &st.Recorded); err != nil {
			return nil, fmt.Errorf("scan latest ride state: %w", err)
		}
		st.Status = models.RideStatus(status.String)
		out[rideID] = st
	}
	return out, rows.Err()
}

// GetLatestParkActivity returns a park's most recent activity snapshot, or
// found=false if the park has never been collected.
func (db *DB) GetLatestParkActivity(ctx context.Context, parkID string) (snap *models.ParkActivitySnapshot, found bool, err error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT park_id, recorded_at, rides_tracked, rides_open, rides_closed,
		       avg_wait_time, max_wait_time, park_appears_open, shame_score
		FROM park_activity_snapshots WHERE park_id = ?
		ORDER BY recorded_at DESC LIMIT 1`, parkID)

	s := &models.ParkActivitySnapshot{}
	if err := row.Scan(&s.ParkID, &s.RecordedAt, &s.RidesTracked, &s.RidesOpen, &s.RidesClosed,
		&s.AvgWaitMinutes, &s.MaxWaitMinutes, &s.ParkAppearsOpen, &s.ShameScore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get latest park activity %s: %w", parkID, err)
	}
	return s, true, nil
}

// AvgShameScoreWindow is a park's average shame_score over a window, scored
// only from cycles where the park appeared open.
type AvgShameScoreWindow struct {
	AvgShameScore  *float64
	AvgWaitMinutes *float64
	MaxWaitMinutes *int
	SampleCount    int
}

// GetAvgShameScoreWindow averages shame_score (and wait-time fields) over
// [start, end), restricted to rows where park_appears_open is true. This is
// the YESTERDAY rule of thumb (§4.7): never recompute shame scores by
// joining ride-level snapshots to park-level ones on exact timestamps,
// always average the already-stored park_activity_snapshots values.
func (db *DB) GetAvgShameScoreWindow(ctx context.Context, parkID string, start, end time.Time) (*AvgShameScoreWindow, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT AVG(shame_score), AVG(avg_wait_time), MAX(max_wait_time), COUNT(*)
		FROM park_activity_snapshots
		WHERE park_id = ? AND recorded_at >= ? AND recorded_at < ? AND park_appears_open = TRUE`,
		parkID, start, end)

	var avgShame, avgWait sql.NullFloat64
	var maxWait sql.NullInt64
	var count int
	if err := row.Scan(&avgShame, &avgWait, &maxWait, &count); err != nil {
		return nil, fmt.Errorf("avg shame score window for %s: %w", parkID, err)
	}

	w := &AvgShameScoreWindow{SampleCount: count}
	if avgShame.Valid {
		v := avgShame.Float64
		w.AvgShameScore = &v
	}
	if avgWait.Valid {
		v := avgWait.Float64
		w.AvgWaitMinutes = &v
	}
	if maxWait.Valid {
		v := int(maxWait.Int64)
		w.MaxWaitMinutes = &v
	}
	return w, nil
}

// GetLatestStorageMetrics returns the most recent footprint sample for
// every table the storage reporter tracks.
func (db *DB) GetLatestStorageMetrics(ctx context.Context) ([]*models.StorageMetrics, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT table_name, row_count, data_size_bytes, index_size_bytes,
		       growth_rows_per_day, sampled_at
		FROM storage_metrics m
		WHERE sampled_at = (SELECT MAX(sampled_at) FROM storage_metrics WHERE table_name = m.table_name)
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("query latest storage metrics: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.StorageMetrics
	for rows.Next() {
		s := &models.StorageMetrics{}
		if err := rows.Scan(&s.TableName, &s.RowCount, &s.DataSizeBytes, &s.IndexSizeBytes,
			&s.GrowthPerDay, &s.SampledAt); err != nil {
			return nil, fmt.Errorf("scan storage metrics: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordStorageMetrics appends one sample per table, called periodically by
// the storage reporter (§4.9).
func (db *DB) RecordStorageMetrics(ctx context.Context, samples []*models.StorageMetrics) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin storage metrics tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO storage_metrics (table_name, row_count, data_size_bytes, index_size_bytes,
		                              growth_rows_per_day, sampled_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare storage metrics insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.TableName, s.RowCount, s.DataSizeBytes,
			s.IndexSizeBytes, s.GrowthPerDay, s.SampledAt); err != nil {
			return fmt.Errorf("insert storage metrics for %s: %w", s.TableName, err)
		}
	}
	return tx.Commit()
}
