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

	"github.com/tomtom215/parkwatch/internal/models"
)

// UpsertImportCheckpoint persists the current state of one archive-import
// job, creating the row on first call and overwriting it on every
// subsequent one (§4.8). The importer calls this every CheckpointInterval
// batches so a resume reads back exactly what the last successful persist
// wrote.
func (db *DB) UpsertImportCheckpoint(ctx context.Context, c *models.ImportCheckpoint) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO import_checkpoints
			(id, destination_id, status, last_processed_date, last_processed_file,
			 records_imported, errors_encountered, start_date, end_date, failure_reason, updated_at)
		VALUES (?, ?, ?, ?, nullif(?, ''), ?, ?, ?, ?, nullif(?, ''), CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			last_processed_date = excluded.last_processed_date,
			last_processed_file = excluded.last_processed_file,
			records_imported = excluded.records_imported,
			errors_encountered = excluded.errors_encountered,
			failure_reason = excluded.failure_reason,
			updated_at = CURRENT_TIMESTAMP`,
		c.ID, c.DestinationID, c.Status, c.LastProcessedDate, c.LastProcessedFile,
		c.RecordsImported, c.ErrorsEncountered, c.StartDate, c.EndDate, c.FailureReason)
	if err != nil {
		return fmt.Errorf("upsert import checkpoint %s: %w", c.ID, err)
	}
	return nil
}

// GetImportCheckpoint returns the most recent checkpoint row for a
// destination, found=false if no import has ever targeted it.
func (db *DB) GetImportCheckpoint(ctx context.Context, destinationID string) (*models.ImportCheckpoint, bool, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, destination_id, status, last_processed_date, last_processed_file,
		       records_imported, errors_encountered, start_date, end_date, failure_reason, created_at, updated_at
		FROM import_checkpoints
		WHERE destination_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, destinationID)

	c, err := scanImportCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get import checkpoint for %s: %w", destinationID, err)
	}
	return c, true, nil
}

// ListResumableImportCheckpoints returns every checkpoint in PAUSED or
// FAILED status, consulted on process startup so an interrupted backfill
// picks back up without an operator re-issuing --import-once by hand.
func (db *DB) ListResumableImportCheckpoints(ctx context.Context) ([]*models.ImportCheckpoint, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, destination_id, status, last_processed_date, last_processed_file,
		       records_imported, errors_encountered, start_date, end_date, failure_reason, created_at, updated_at
		FROM import_checkpoints
		WHERE status IN (?, ?)`, models.ImportPaused, models.ImportFailed)
	if err != nil {
		return nil, fmt.Errorf("list resumable import checkpoints: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.ImportCheckpoint
	for rows.Next() {
		c, err := scanImportCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resumable import checkpoint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListImportCheckpoints returns the most recent checkpoint row for every
// destination that has ever been imported, for the admin import-list
// surface (§6).
func (db *DB) ListImportCheckpoints(ctx context.Context) ([]*models.ImportCheckpoint, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, destination_id, status, last_processed_date, last_processed_file,
		       records_imported, errors_encountered, start_date, end_date, failure_reason, created_at, updated_at
		FROM import_checkpoints
		QUALIFY ROW_NUMBER() OVER (PARTITION BY destination_id ORDER BY created_at DESC) = 1
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list import checkpoints: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.ImportCheckpoint
	for rows.Next() {
		c, err := scanImportCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import checkpoint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImportCheckpoint(row rowScanner) (*models.ImportCheckpoint, error) {
	var c models.ImportCheckpoint
	var lastFile, failureReason sql.NullString
	var lastDate, startDate, endDate sql.NullTime

	if err := row.Scan(&c.ID, &c.DestinationID, &c.Status, &lastDate, &lastFile,
		&c.RecordsImported, &c.ErrorsEncountered, &startDate, &endDate, &failureReason,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if lastDate.Valid {
		c.LastProcessedDate = &lastDate.Time
	}
	if startDate.Valid {
		c.StartDate = &startDate.Time
	}
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	c.LastProcessedFile = lastFile.String
	c.FailureReason = failureReason.String
	return &c, nil
}
