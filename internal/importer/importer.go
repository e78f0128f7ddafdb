// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package importer backfills historical ride status from source B's
// per-day gzip archive (§4.8). A Runner walks one destination's archive
// day by day through sync.ClientB.StreamArchive, resolves each record
// against the same EntityResolver the live collector uses, and commits
// batches of BatchSize records at a time. Progress is checkpointed every
// CheckpointInterval batches to both DuckDB (import_checkpoints, queryable
// by the admin API) and a Badger-backed wal.Store (durable across a crash
// that happens between DuckDB commits), so a restart resumes from
// last_processed_date+1 rather than reprocessing the whole destination.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
	"github.com/tomtom215/parkwatch/internal/models"
	"github.com/tomtom215/parkwatch/internal/sync"
	"github.com/tomtom215/parkwatch/internal/wal"
)

// ErrNoWindow is returned when an import is requested with an end date
// before its effective start date (after resuming from a checkpoint).
var ErrNoWindow = errors.New("importer: resume date is after end date, nothing to import")

// Target identifies one archive backfill job: the external destination UUID
// source B addresses the archive by, the internal park it maps to, and the
// park-type flag the down rule and shame score need.
type Target struct {
	DestinationID       string
	ParkID              string
	ParkIsDisneyOrUniversal bool
}

// Runner drives the checkpointed archive import state machine for any
// number of destinations, one at a time.
type Runner struct {
	db       *database.DB
	client   *sync.ClientB
	resolver *sync.EntityResolver
	wal      wal.Store

	batchSize          int
	checkpointInterval int
}

// NewRunner builds a Runner. walStore may be nil, in which case crash-resume
// relies solely on the DuckDB-resident checkpoint (coarser-grained, since it
// is only updated every CheckpointInterval batches same as the wal store,
// but without the extra fsync-backed durability).
func NewRunner(cfg config.ImportConfig, db *database.DB, client *sync.ClientB, resolver *sync.EntityResolver, walStore wal.Store) *Runner {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	checkpointInterval := cfg.CheckpointInterval
	if checkpointInterval <= 0 {
		checkpointInterval = 10
	}
	return &Runner{
		db:                 db,
		client:             client,
		resolver:           resolver,
		wal:                walStore,
		batchSize:          batchSize,
		checkpointInterval: checkpointInterval,
	}
}

// Import backfills target's archive across [start, end] inclusive,
// resuming from any existing checkpoint for target.DestinationID. A
// PENDING/COMPLETED/CANCELLED destination starts (or restarts) a fresh
// window; PAUSED/FAILED resumes from LastProcessedDate+1 regardless of the
// start argument, per §4.8's resume rule.
func (r *Runner) Import(ctx context.Context, target Target, start, end time.Time) error {
	checkpoint, err := r.loadOrCreateCheckpoint(ctx, target, start, end)
	if err != nil {
		return fmt.Errorf("load checkpoint for %s: %w", target.DestinationID, err)
	}

	resumeFrom := checkpoint.ResumeFrom()
	if resumeFrom == nil {
		resumeFrom = &start
	}
	if resumeFrom.After(end) {
		return ErrNoWindow
	}

	if err := r.transition(ctx, checkpoint, models.ImportInProgress); err != nil {
		return err
	}

	runErr := r.runImport(ctx, target, checkpoint, *resumeFrom, end)

	if runErr != nil {
		finalStatus := models.ImportFailed
		if errors.Is(runErr, context.Canceled) {
			finalStatus = models.ImportPaused
		}
		checkpoint.FailureReason = runErr.Error()
		if err := r.transition(ctx, checkpoint, finalStatus); err != nil {
			logging.Error().Err(err).Str("destination_id", target.DestinationID).Msg("failed to persist post-failure checkpoint transition")
		}
		return runErr
	}

	checkpoint.FailureReason = ""
	if err := r.transition(ctx, checkpoint, models.ImportCompleted); err != nil {
		return err
	}
	if r.wal != nil {
		if err := r.wal.DeleteCheckpoint(ctx, target.DestinationID); err != nil {
			logging.Warn().Err(err).Str("destination_id", target.DestinationID).Msg("failed to delete completed import's durable checkpoint")
		}
	}
	return nil
}

func (r *Runner) loadOrCreateCheckpoint(ctx context.Context, target Target, start, end time.Time) (*models.ImportCheckpoint, error) {
	if existing, found, err := r.db.GetImportCheckpoint(ctx, target.DestinationID); err != nil {
		return nil, err
	} else if found && existing.Status != models.ImportCompleted && existing.Status != models.ImportCancelled {
		return existing, nil
	}

	id := fmt.Sprintf("%s-%d", target.DestinationID, start.Unix())
	now := time.Now().UTC()
	checkpoint := &models.ImportCheckpoint{
		ID:            id,
		DestinationID: target.DestinationID,
		Status:        models.ImportPending,
		StartDate:     &start,
		EndDate:       &end,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.db.UpsertImportCheckpoint(ctx, checkpoint); err != nil {
		return nil, err
	}
	return checkpoint, nil
}

func (r *Runner) transition(ctx context.Context, checkpoint *models.ImportCheckpoint, next models.ImportStatus) error {
	if err := checkpoint.Transition(next); err != nil {
		return err
	}
	checkpoint.UpdatedAt = time.Now().UTC()
	if err := r.db.UpsertImportCheckpoint(ctx, checkpoint); err != nil {
		return fmt.Errorf("persist checkpoint transition to %s: %w", next, err)
	}
	if r.wal != nil {
		if err := r.wal.SaveCheckpoint(ctx, checkpoint); err != nil {
			logging.Warn().Err(err).Str("destination_id", checkpoint.DestinationID).Msg("failed to persist checkpoint transition to durable store")
		}
	}
	metrics.SetImportCheckpointAge(checkpoint.DestinationID, time.Since(checkpoint.UpdatedAt))
	return nil
}

// runImport streams target's archive and commits it in batches (a batch ends
// at each day boundary or at batchSize records), persisting a checkpoint
// every checkpointInterval written batches so a crash loses at most that
// many batches of re-work on resume.
func (r *Runner) runImport(ctx context.Context, target Target, checkpoint *models.ImportCheckpoint, start, end time.Time) error {
	records, errs := r.client.StreamArchive(ctx, target.DestinationID, start, end)

	batcher := newDayBatcher(target, r.resolver)
	daysSinceCheckpoint := 0
	var lastDay time.Time
	haveLastDay := false

	flush := func(day time.Time) error {
		rideSnapshots, parkSnapshots := batcher.drain()
		if len(rideSnapshots) == 0 && len(parkSnapshots) == 0 {
			return nil
		}
		if err := r.db.WriteCycle(ctx, rideSnapshots, parkSnapshots); err != nil {
			return fmt.Errorf("write archive batch for day %s: %w", day.Format("2006-01-02"), err)
		}
		checkpoint.RecordsImported += int64(len(rideSnapshots))
		checkpoint.LastProcessedDate = &day
		checkpoint.LastProcessedFile = sync.ArchiveObjectPath(target.DestinationID, day)

		daysSinceCheckpoint++
		if daysSinceCheckpoint >= r.checkpointInterval {
			daysSinceCheckpoint = 0
			checkpoint.UpdatedAt = time.Now().UTC()
			if err := r.db.UpsertImportCheckpoint(ctx, checkpoint); err != nil {
				return fmt.Errorf("persist import checkpoint: %w", err)
			}
			if r.wal != nil {
				if err := r.wal.SaveCheckpoint(ctx, checkpoint); err != nil {
					logging.Warn().Err(err).Str("destination_id", target.DestinationID).Msg("failed to persist import checkpoint to durable store")
				}
			}
			metrics.RecordImportProgress(target.DestinationID, checkpoint.RecordsImported, nil)
		}
		return nil
	}

	for records != nil || errs != nil {
		select {
		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			if haveLastDay && !rec.Day.Equal(lastDay) {
				if err := flush(lastDay); err != nil {
					return err
				}
			}
			lastDay = rec.Day
			haveLastDay = true
			batcher.add(ctx, rec)
			if batcher.count() >= r.batchSize {
				if err := flush(lastDay); err != nil {
					return err
				}
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			if haveLastDay {
				if flushErr := flush(lastDay); flushErr != nil {
					logging.Error().Err(flushErr).Msg("failed to flush final archive batch after stream error")
				}
			}
			metrics.RecordImportProgress(target.DestinationID, checkpoint.RecordsImported, err)
			r.logStreamFailure(ctx, target, err)
			return err
		}
	}

	if haveLastDay {
		if err := flush(lastDay); err != nil {
			return err
		}
	}
	metrics.RecordImportProgress(target.DestinationID, checkpoint.RecordsImported, nil)
	return nil
}

func (r *Runner) logStreamFailure(ctx context.Context, target Target, streamErr error) {
	issueType := models.IssueTransportError
	if errors.Is(streamErr, sync.ErrArchiveDecompressFailed) {
		issueType = models.IssueParseError
	}
	issue := &models.DataQualityLog{
		ImportID:    target.DestinationID,
		IssueType:   issueType,
		EntityType:  "archive",
		ExternalID:  target.DestinationID,
		Description: streamErr.Error(),
		Timestamp:   time.Now().UTC(),
	}
	if err := r.db.LogDataQualityIssue(ctx, issue); err != nil {
		logging.Error().Err(err).Msg("failed to record archive stream failure as a data quality issue")
	}
	metrics.RecordDataQualityIssue(string(issueType))
}
