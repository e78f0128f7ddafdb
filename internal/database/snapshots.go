// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/parkwatch/internal/models"
)

// WriteCycle persists every ride and park snapshot from one collection
// cycle in a single transaction: either the whole cycle lands or none of it
// does (§4.4). Callers must ensure every row shares the same RecordedAt so
// later equality-joins between ride and park snapshots stay valid.
func (db *DB) WriteCycle(ctx context.Context, rideSnapshots []*models.RideStatusSnapshot, parkSnapshots []*models.ParkActivitySnapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cycle tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rideStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ride_status_snapshots (ride_id, park_id, recorded_at, status, computed_is_open, wait_time_minutes, data_source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ride snapshot insert: %w", err)
	}
	defer closeQuietly(rideStmt)

	for _, s := range rideSnapshots {
		if _, err := rideStmt.ExecContext(ctx, s.RideID, s.ParkID, s.RecordedAt, nullableStatus(s.Status),
			s.ComputedIsOpen, s.WaitTimeMin, s.DataSource); err != nil {
			return fmt.Errorf("insert ride snapshot %s/%s: %w", s.RideID, s.RecordedAt, err)
		}
	}

	parkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO park_activity_snapshots (park_id, recorded_at, rides_tracked, rides_open, rides_closed, avg_wait_time, max_wait_time, park_appears_open, shame_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare park snapshot insert: %w", err)
	}
	defer closeQuietly(parkStmt)

	for _, s := range parkSnapshots {
		if _, err := parkStmt.ExecContext(ctx, s.ParkID, s.RecordedAt, s.RidesTracked, s.RidesOpen, s.RidesClosed,
			s.AvgWaitMinutes, s.MaxWaitMinutes, s.ParkAppearsOpen, s.ShameScore); err != nil {
			return fmt.Errorf("insert park snapshot %s/%s: %w", s.ParkID, s.RecordedAt, err)
		}
	}

	return tx.Commit()
}

// nullableStatus returns nil for the empty RideStatus so it is stored as
// SQL NULL rather than an empty string, matching the park-type down rule's
// distinction between "explicitly unknown" and any enumerated status.
func nullableStatus(s models.RideStatus) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// LogDataQualityIssue records a recoverable per-record failure encountered
// during collection or import (schema violations, mapping failures) without
// aborting the batch that produced it (§4.1, §4.2).
func (db *DB) LogDataQualityIssue(ctx context.Context, issue *models.DataQualityLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO data_quality_log (id, import_id, issue_type, entity_type, external_id, description, timestamp)
		VALUES (nextval('data_quality_log_id_seq'), nullif(?, ''), ?, nullif(?, ''), nullif(?, ''), ?, ?)`,
		issue.ImportID, issue.IssueType, issue.EntityType, issue.ExternalID, issue.Description, issue.Timestamp)
	if err != nil {
		return fmt.Errorf("log data quality issue: %w", err)
	}
	return nil
}

// ListDataQualityLogsByImportID returns every quality issue recorded for
// one archive import, newest first, for the import admin surface's quality
// report endpoint (§6).
func (db *DB) ListDataQualityLogsByImportID(ctx context.Context, importID string) ([]*models.DataQualityLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, coalesce(import_id, ''), issue_type, coalesce(entity_type, ''), coalesce(external_id, ''), description, timestamp
		FROM data_quality_log
		WHERE import_id = ?
		ORDER BY timestamp DESC`, importID)
	if err != nil {
		return nil, fmt.Errorf("list data quality logs for import %s: %w", importID, err)
	}
	defer closeQuietly(rows)

	var out []*models.DataQualityLog
	for rows.Next() {
		var log models.DataQualityLog
		if err := rows.Scan(&log.ID, &log.ImportID, &log.IssueType, &log.EntityType, &log.ExternalID, &log.Description, &log.Timestamp); err != nil {
			return nil, fmt.Errorf("scan data quality log: %w", err)
		}
		out = append(out, &log)
	}
	return out, rows.Err()
}
