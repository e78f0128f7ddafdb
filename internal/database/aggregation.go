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

// GetAggregationLog returns the barrier row for (date, aggType), if one
// exists.
func (db *DB) GetAggregationLog(ctx context.Context, date string, aggType models.AggregationType) (*models.AggregationLog, bool, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT aggregation_date, aggregation_type, status, rows_written, error_message, started_at, finished_at
		FROM aggregation_log WHERE aggregation_date = ? AND aggregation_type = ?`, date, aggType)

	l := &models.AggregationLog{}
	var errMsg sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(&l.AggregationDate, &l.AggregationType, &l.Status, &l.RowsWritten, &errMsg, &l.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get aggregation log %s/%s: %w", date, aggType, err)
	}
	l.ErrorMessage = errMsg.String
	if finishedAt.Valid {
		l.FinishedAt = &finishedAt.Time
	}
	return l, true, nil
}

// BeginAggregationRun enforces the (aggregation_date, aggregation_type)
// barrier: it refuses to start a new run when a prior run already succeeded
// (unless force is set) and when a prior run is still genuinely in
// progress (not stuck past StuckThreshold). On success it writes a
// `running` row and the caller must call FinishAggregationRun exactly once.
func (db *DB) BeginAggregationRun(ctx context.Context, date string, aggType models.AggregationType, force bool) (bool, error) {
	existing, found, err := db.GetAggregationLog(ctx, date, aggType)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if found && !force {
		if existing.Succeeded() {
			return false, nil
		}
		if existing.Status == models.AggregationRunning && !existing.IsStuck(now) {
			return false, nil
		}
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO aggregation_log (aggregation_date, aggregation_type, status, rows_written, started_at, finished_at)
		VALUES (?, ?, ?, 0, ?, NULL)
		ON CONFLICT (aggregation_date, aggregation_type) DO UPDATE SET
			status = excluded.status, rows_written = 0, error_message = NULL,
			started_at = excluded.started_at, finished_at = NULL`,
		date, aggType, models.AggregationRunning, now)
	if err != nil {
		return false, fmt.Errorf("begin aggregation run %s/%s: %w", date, aggType, err)
	}
	return true, nil
}

// FinishAggregationRun records the terminal state of a run started with
// BeginAggregationRun.
func (db *DB) FinishAggregationRun(ctx context.Context, date string, aggType models.AggregationType, rowsWritten int64, runErr error) error {
	status := models.AggregationSuccess
	var errMsg interface{}
	if runErr != nil {
		status = models.AggregationFailed
		errMsg = runErr.Error()
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE aggregation_log SET status = ?, rows_written = ?, error_message = ?, finished_at = ?
		WHERE aggregation_date = ? AND aggregation_type = ?`,
		status, rowsWritten, errMsg, time.Now().UTC(), date, aggType)
	if err != nil {
		return fmt.Errorf("finish aggregation run %s/%s: %w", date, aggType, err)
	}
	return nil
}

// hourlyRideAgg accumulates one ride's raw-snapshot statistics for a single
// UTC hour, computed in Go rather than pure SQL so status-change and
// down-streak detection can walk an ordered sequence (see AggregateHour).
type hourlyRideAgg struct {
	parkID                 string
	weight                 int
	operating, down, total int
	statusChanges          int
	currentDownRun         int
	longestDownRun         int
	lastStatus             models.RideStatus
	haveLast               bool
}

// AggregateHour rolls up every ride_status_snapshots/park_activity_snapshots
// row in [hourStart, hourStart+1h) into ride_hourly_stats/park_hourly_stats.
// Down-streak and status-change detection require snapshots in recorded_at
// order, which is why this walks rows in Go instead of a pure SQL rollup
// (§4.5). intervalMinutes converts a snapshot count into minutes/hours; it
// is the collector's configured cadence, not read from the data.
func (db *DB) AggregateHour(ctx context.Context, hourStart time.Time, intervalMinutes int) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if intervalMinutes <= 0 {
		intervalMinutes = 10
	}
	hourEnd := hourStart.Add(time.Hour)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.ride_id, s.park_id, s.status, s.computed_is_open, r.tier, p.is_disney, p.is_universal
		FROM ride_status_snapshots s
		JOIN rides r ON r.id = s.ride_id
		JOIN parks p ON p.id = s.park_id
		WHERE s.recorded_at >= ? AND s.recorded_at < ?
		ORDER BY s.ride_id, s.recorded_at`, hourStart, hourEnd)
	if err != nil {
		return 0, fmt.Errorf("query hour %s raw snapshots: %w", hourStart, err)
	}
	defer closeQuietly(rows)

	rideAggs := make(map[string]*hourlyRideAgg)
	var order []string
	for rows.Next() {
		var rideID, parkID string
		var status sql.NullString
		var computedIsOpen bool
		var tier int
		var isDisney, isUniversal bool
		if err := rows.Scan(&rideID, &parkID, &status, &computedIsOpen, &tier, &isDisney, &isUniversal); err != nil {
			return 0, fmt.Errorf("scan hour %s snapshot: %w", hourStart, err)
		}

		a, ok := rideAggs[rideID]
		if !ok {
			a = &hourlyRideAgg{parkID: parkID, weight: models.TierWeight(tier)}
			rideAggs[rideID] = a
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
		return 0, err
	}

	parkAggs, err := db.aggregateParkHour(ctx, hourStart, hourEnd, rideAggs, intervalMinutes)
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin hourly tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rideStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ride_hourly_stats (ride_id, park_id, hour_start_utc, operating_snapshots, down_snapshots,
			downtime_hours, weighted_downtime_hours, effective_weight, ride_operated, snapshot_count,
			uptime_percentage, status_changes, longest_downtime_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ride_id, hour_start_utc) DO UPDATE SET
			operating_snapshots = excluded.operating_snapshots, down_snapshots = excluded.down_snapshots,
			downtime_hours = excluded.downtime_hours, weighted_downtime_hours = excluded.weighted_downtime_hours,
			effective_weight = excluded.effective_weight, ride_operated = excluded.ride_operated,
			snapshot_count = excluded.snapshot_count, uptime_percentage = excluded.uptime_percentage,
			status_changes = excluded.status_changes, longest_downtime_minutes = excluded.longest_downtime_minutes`)
	if err != nil {
		return 0, fmt.Errorf("prepare ride hourly upsert: %w", err)
	}
	defer closeQuietly(rideStmt)

	var rowsWritten int64
	for _, rideID := range order {
		a := rideAggs[rideID]
		downtimeHours := float64(a.down) * float64(intervalMinutes) / 60
		uptimePct := 0.0
		if a.total > 0 {
			uptimePct = float64(a.operating) / float64(a.total) * 100
		}
		longestDowntimeMinutes := a.longestDownRun * intervalMinutes

		if _, err := rideStmt.ExecContext(ctx, rideID, a.parkID, hourStart, a.operating, a.down,
			downtimeHours, downtimeHours*float64(a.weight), a.weight, a.operating > 0, a.total,
			uptimePct, a.statusChanges, longestDowntimeMinutes); err != nil {
			return 0, fmt.Errorf("upsert ride hourly stats %s/%s: %w", rideID, hourStart, err)
		}
		rowsWritten++
	}

	parkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO park_hourly_stats (park_id, hour_start_utc, avg_shame_score, avg_wait_time, max_wait_time,
			park_was_open, snapshot_count, total_downtime_hours, rides_down)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (park_id, hour_start_utc) DO UPDATE SET
			avg_shame_score = excluded.avg_shame_score, avg_wait_time = excluded.avg_wait_time,
			max_wait_time = excluded.max_wait_time, park_was_open = excluded.park_was_open,
			snapshot_count = excluded.snapshot_count, total_downtime_hours = excluded.total_downtime_hours,
			rides_down = excluded.rides_down`)
	if err != nil {
		return 0, fmt.Errorf("prepare park hourly upsert: %w", err)
	}
	defer closeQuietly(parkStmt)

	for parkID, p := range parkAggs {
		if _, err := parkStmt.ExecContext(ctx, parkID, hourStart, p.avgShameScore, p.avgWaitMinutes, p.maxWaitMinutes,
			p.wasOpen, p.snapshotCount, p.totalDowntimeHours, p.ridesDown); err != nil {
			return 0, fmt.Errorf("upsert park hourly stats %s/%s: %w", parkID, hourStart, err)
		}
		rowsWritten++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit hourly tx: %w", err)
	}
	return rowsWritten, nil
}

type parkHourAgg struct {
	avgShameScore      *float64
	avgWaitMinutes     *float64
	maxWaitMinutes     *int
	wasOpen            bool
	snapshotCount      int
	totalDowntimeHours float64
	ridesDown          int
}

// aggregateParkHour derives per-park hourly fields from park_activity_snapshots
// (shame score, wait times, open flag) and from the already-computed
// per-ride aggregates (total downtime hours, distinct rides down this hour).
func (db *DB) aggregateParkHour(ctx context.Context, hourStart, hourEnd time.Time, rideAggs map[string]*hourlyRideAgg, intervalMinutes int) (map[string]*parkHourAgg, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT park_id, avg_wait_time, max_wait_time, park_appears_open, shame_score
		FROM park_activity_snapshots
		WHERE recorded_at >= ? AND recorded_at < ?`, hourStart, hourEnd)
	if err != nil {
		return nil, fmt.Errorf("query hour %s park snapshots: %w", hourStart, err)
	}
	defer closeQuietly(rows)

	type acc struct {
		waitSum, waitCount int
		shameSum           float64
		shameCount         int
		maxWait            int
		haveMaxWait        bool
		wasOpen            bool
		snapshotCount      int
	}
	accs := make(map[string]*acc)
	for rows.Next() {
		var parkID string
		var avgWait sql.NullFloat64
		var maxWait sql.NullInt64
		var appearsOpen bool
		var shame sql.NullFloat64
		if err := rows.Scan(&parkID, &avgWait, &maxWait, &appearsOpen, &shame); err != nil {
			return nil, fmt.Errorf("scan hour %s park snapshot: %w", hourStart, err)
		}
		a, ok := accs[parkID]
		if !ok {
			a = &acc{}
			accs[parkID] = a
		}
		a.snapshotCount++
		if appearsOpen {
			a.wasOpen = true
		}
		if avgWait.Valid {
			a.waitSum += int(avgWait.Float64)
			a.waitCount++
		}
		if maxWait.Valid {
			if !a.haveMaxWait || int(maxWait.Int64) > a.maxWait {
				a.maxWait = int(maxWait.Int64)
				a.haveMaxWait = true
			}
		}
		if shame.Valid {
			a.shameSum += shame.Float64
			a.shameCount++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	downHours := make(map[string]float64)
	downRides := make(map[string]int)
	for _, a := range rideAggs {
		downHours[a.parkID] += float64(a.down) * float64(intervalMinutes) / 60
		if a.down > 0 {
			downRides[a.parkID]++
		}
	}

	result := make(map[string]*parkHourAgg, len(accs))
	for parkID, a := range accs {
		p := &parkHourAgg{wasOpen: a.wasOpen, snapshotCount: a.snapshotCount}
		if a.waitCount > 0 {
			avg := float64(a.waitSum) / float64(a.waitCount)
			p.avgWaitMinutes = &avg
		}
		if a.haveMaxWait {
			maxWait := a.maxWait
			p.maxWaitMinutes = &maxWait
		}
		if a.shameCount > 0 {
			avg := a.shameSum / float64(a.shameCount)
			p.avgShameScore = &avg
		}
		p.totalDowntimeHours = downHours[parkID]
		p.ridesDown = downRides[parkID]
		result[parkID] = p
	}
	return result, nil
}

// AggregateDay rolls up one park's ride_hourly_stats/park_hourly_stats rows
// within [dayStartUTC, dayEndUTC) into ride_daily_stats/park_daily_stats for
// statDate (the park-local calendar date). Wait-time statistics are read
// directly from ride_status_snapshots for the same window: they are
// presentation fields never consulted by the aggregation barrier or a
// retention/cleanup decision, so sourcing them from raw data does not
// weaken the "daily depends on hourly, not raw" retention-safety guarantee
// that uptime/downtime/status-change columns rely on (§4.5).
func (db *DB) AggregateDay(ctx context.Context, parkID, statDate string, dayStartUTC, dayEndUTC time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin daily tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		WITH hourly AS (
			SELECT ride_id, park_id,
				SUM(operating_snapshots) AS op_snaps,
				SUM(downtime_hours) AS downtime_hrs,
				SUM(snapshot_count) AS total_snaps,
				SUM(status_changes) AS status_changes,
				MAX(longest_downtime_minutes) AS longest_downtime_minutes
			FROM ride_hourly_stats
			WHERE park_id = ? AND hour_start_utc >= ? AND hour_start_utc < ?
			GROUP BY ride_id, park_id
		),
		waits AS (
			SELECT ride_id,
				AVG(wait_time_minutes) AS avg_wait,
				MIN(wait_time_minutes) AS min_wait,
				MAX(wait_time_minutes) AS max_wait
			FROM ride_status_snapshots
			WHERE park_id = ? AND recorded_at >= ? AND recorded_at < ? AND wait_time_minutes IS NOT NULL
			GROUP BY ride_id
		)
		INSERT INTO ride_daily_stats (ride_id, park_id, stat_date, uptime_minutes, downtime_minutes,
			operating_hours_minutes, avg_wait_time, min_wait_time, max_wait_time, peak_wait_time,
			status_changes, longest_downtime_minutes)
		SELECT h.ride_id, h.park_id, ?,
			CAST(h.op_snaps * 10 AS INTEGER),
			CAST(ROUND(h.downtime_hrs * 60) AS INTEGER),
			CAST(h.total_snaps * 10 AS INTEGER),
			w.avg_wait, w.min_wait, w.max_wait, w.max_wait,
			h.status_changes, h.longest_downtime_minutes
		FROM hourly h
		LEFT JOIN waits w ON w.ride_id = h.ride_id
		ON CONFLICT (ride_id, stat_date) DO UPDATE SET
			uptime_minutes = excluded.uptime_minutes, downtime_minutes = excluded.downtime_minutes,
			operating_hours_minutes = excluded.operating_hours_minutes, avg_wait_time = excluded.avg_wait_time,
			min_wait_time = excluded.min_wait_time, max_wait_time = excluded.max_wait_time,
			peak_wait_time = excluded.peak_wait_time, status_changes = excluded.status_changes,
			longest_downtime_minutes = excluded.longest_downtime_minutes`,
		parkID, dayStartUTC, dayEndUTC, parkID, dayStartUTC, dayEndUTC, statDate)
	if err != nil {
		return 0, fmt.Errorf("roll up ride daily stats for park %s/%s: %w", parkID, statDate, err)
	}
	rideRows, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		INSERT INTO park_daily_stats (park_id, stat_date, avg_shame_score, avg_wait_time, max_wait_time,
			total_downtime_hours, rides_reporting)
		SELECT ?, ?,
			AVG(avg_shame_score) FILTER (WHERE park_was_open),
			AVG(avg_wait_time),
			MAX(max_wait_time),
			COALESCE(SUM(total_downtime_hours), 0),
			(SELECT COUNT(*) FROM ride_daily_stats WHERE park_id = ? AND stat_date = ?)
		FROM park_hourly_stats
		WHERE park_id = ? AND hour_start_utc >= ? AND hour_start_utc < ?
		ON CONFLICT (park_id, stat_date) DO UPDATE SET
			avg_shame_score = excluded.avg_shame_score, avg_wait_time = excluded.avg_wait_time,
			max_wait_time = excluded.max_wait_time, total_downtime_hours = excluded.total_downtime_hours,
			rides_reporting = excluded.rides_reporting`,
		parkID, statDate, parkID, statDate, parkID, dayStartUTC, dayEndUTC)
	if err != nil {
		return 0, fmt.Errorf("roll up park daily stats for park %s/%s: %w", parkID, statDate, err)
	}
	parkRows, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit daily tx: %w", err)
	}
	return rideRows + parkRows, nil
}

// AggregateWeek rolls up one park's ride_daily_stats/park_daily_stats rows
// for [weekStartDate, weekStartDate+6d] into ride_weekly_stats/
// park_weekly_stats, deriving trend_vs_previous_week against the row
// already stored for (prevISOYear, prevISOWeek) rather than from raw or
// daily data (§4.5: weekly never recomputes trend from anything but a
// prior weekly row).
func (db *DB) AggregateWeek(ctx context.Context, parkID string, isoYear, isoWeek int, weekStartDate, weekEndDate string, prevISOYear, prevISOWeek int) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin weekly tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		WITH this_week AS (
			SELECT ride_id, park_id,
				SUM(uptime_minutes) AS uptime_minutes,
				SUM(downtime_minutes) AS downtime_minutes,
				SUM(operating_hours_minutes) AS operating_hours_minutes,
				AVG(avg_wait_time) AS avg_wait_time,
				MAX(peak_wait_time) AS peak_wait_time,
				SUM(status_changes) AS status_changes,
				COUNT(*) AS days_present
			FROM ride_daily_stats
			WHERE park_id = ? AND stat_date >= ? AND stat_date <= ?
			GROUP BY ride_id, park_id
		)
		INSERT INTO ride_weekly_stats (ride_id, park_id, iso_year, iso_week, week_start_date,
			uptime_minutes, downtime_minutes, operating_hours_minutes, avg_wait_time, peak_wait_time,
			status_changes, trend_vs_previous_week, days_present)
		SELECT tw.ride_id, tw.park_id, ?, ?, ?,
			tw.uptime_minutes, tw.downtime_minutes, tw.operating_hours_minutes,
			tw.avg_wait_time, tw.peak_wait_time, tw.status_changes,
			CASE WHEN pw.downtime_minutes IS NULL OR pw.downtime_minutes = 0 THEN NULL
			     ELSE (tw.downtime_minutes - pw.downtime_minutes)::DOUBLE / pw.downtime_minutes * 100 END,
			tw.days_present
		FROM this_week tw
		LEFT JOIN ride_weekly_stats pw ON pw.ride_id = tw.ride_id AND pw.iso_year = ? AND pw.iso_week = ?
		ON CONFLICT (ride_id, iso_year, iso_week) DO UPDATE SET
			week_start_date = excluded.week_start_date, uptime_minutes = excluded.uptime_minutes,
			downtime_minutes = excluded.downtime_minutes, operating_hours_minutes = excluded.operating_hours_minutes,
			avg_wait_time = excluded.avg_wait_time, peak_wait_time = excluded.peak_wait_time,
			status_changes = excluded.status_changes, trend_vs_previous_week = excluded.trend_vs_previous_week,
			days_present = excluded.days_present`,
		parkID, weekStartDate, weekEndDate, isoYear, isoWeek, weekStartDate, prevISOYear, prevISOWeek)
	if err != nil {
		return 0, fmt.Errorf("roll up ride weekly stats for park %s week %d-%d: %w", parkID, isoYear, isoWeek, err)
	}
	rideRows, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		WITH this_week AS (
			SELECT park_id,
				AVG(avg_shame_score) AS avg_shame_score,
				COALESCE(SUM(total_downtime_hours), 0) AS total_downtime_hours
			FROM park_daily_stats
			WHERE park_id = ? AND stat_date >= ? AND stat_date <= ?
			GROUP BY park_id
		)
		INSERT INTO park_weekly_stats (park_id, iso_year, iso_week, week_start_date,
			avg_shame_score, total_downtime_hours, trend_vs_previous_week)
		SELECT tw.park_id, ?, ?, ?,
			tw.avg_shame_score, tw.total_downtime_hours,
			CASE WHEN pw.total_downtime_hours IS NULL OR pw.total_downtime_hours = 0 THEN NULL
			     ELSE (tw.total_downtime_hours - pw.total_downtime_hours) / pw.total_downtime_hours * 100 END
		FROM this_week tw
		LEFT JOIN park_weekly_stats pw ON pw.park_id = tw.park_id AND pw.iso_year = ? AND pw.iso_week = ?
		ON CONFLICT (park_id, iso_year, iso_week) DO UPDATE SET
			week_start_date = excluded.week_start_date, avg_shame_score = excluded.avg_shame_score,
			total_downtime_hours = excluded.total_downtime_hours,
			trend_vs_previous_week = excluded.trend_vs_previous_week`,
		parkID, weekStartDate, weekEndDate, isoYear, isoWeek, weekStartDate, prevISOYear, prevISOWeek)
	if err != nil {
		return 0, fmt.Errorf("roll up park weekly stats for park %s week %d-%d: %w", parkID, isoYear, isoWeek, err)
	}
	parkRows, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit weekly tx: %w", err)
	}
	return rideRows + parkRows, nil
}
