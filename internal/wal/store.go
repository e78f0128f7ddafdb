// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/models"
)

// Store persists ImportCheckpoint state durably, independent of the
// DuckDB-resident import_checkpoints row. The importer calls SaveCheckpoint
// at the same points it upserts that row (each status transition and every
// checkpointInterval written batches) and deletes the entry when an import
// completes; the importer's resume path reads the DuckDB row, not this store.
type Store interface {
	// SaveCheckpoint durably persists the current state of one destination's
	// import job. A later call for the same DestinationID overwrites the
	// previous value; this is a latest-wins store, not an append log.
	SaveCheckpoint(ctx context.Context, checkpoint *models.ImportCheckpoint) error

	// LoadCheckpoint returns the persisted checkpoint for a destination, or
	// found=false if none has been saved yet.
	LoadCheckpoint(ctx context.Context, destinationID string) (checkpoint *models.ImportCheckpoint, found bool, err error)

	// ListCheckpoints returns every persisted checkpoint.
	ListCheckpoints(ctx context.Context) ([]*models.ImportCheckpoint, error)

	// DeleteCheckpoint removes a destination's persisted checkpoint, used
	// once a job reaches COMPLETED or CANCELLED and no longer needs
	// crash-resume support.
	DeleteCheckpoint(ctx context.Context, destinationID string) error

	// Stats returns store metrics.
	Stats() Stats

	// Close gracefully shuts down the store.
	Close() error
}

// Stats contains checkpoint-store metrics for monitoring.
type Stats struct {
	CheckpointCount int64
	TotalSaves      int64
	TotalLoads      int64
	DBSizeBytes     int64
}

const checkpointPrefix = "checkpoint:"

// BadgerStore implements Store using BadgerDB for durable, fsync-backed storage.
type BadgerStore struct {
	db     *badger.DB
	config Config

	totalSaves atomic.Int64
	totalLoads atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open creates a new BadgerStore with the given configuration.
func Open(cfg *Config) (*BadgerStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checkpoint store config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	store := &BadgerStore{db: db, config: *cfg}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("import checkpoint store opened")
	return store, nil
}

// SaveCheckpoint persists the checkpoint, keyed by DestinationID.
func (s *BadgerStore) SaveCheckpoint(_ context.Context, checkpoint *models.ImportCheckpoint) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	if checkpoint == nil {
		return ErrNilCheckpoint
	}
	if checkpoint.DestinationID == "" {
		return ErrEmptyDestinationID
	}

	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	key := []byte(checkpointPrefix + checkpoint.DestinationID)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("write checkpoint to BadgerDB: %w", err)
	}

	s.totalSaves.Add(1)
	RecordCheckpointSave()
	return nil
}

// LoadCheckpoint returns the persisted checkpoint for a destination.
func (s *BadgerStore) LoadCheckpoint(_ context.Context, destinationID string) (*models.ImportCheckpoint, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, false, ErrStoreClosed
	}
	s.mu.RUnlock()

	var checkpoint models.ImportCheckpoint
	key := []byte(checkpointPrefix + destinationID)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get checkpoint: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &checkpoint)
		})
	})
	if err != nil {
		return nil, false, err
	}
	if checkpoint.DestinationID == "" {
		return nil, false, nil
	}

	s.totalLoads.Add(1)
	RecordCheckpointLoad()
	return &checkpoint, true, nil
}

// ListCheckpoints returns every persisted checkpoint, using BadgerDB's
// snapshot-isolated View transaction so the result is a consistent
// point-in-time read even under concurrent writes.
func (s *BadgerStore) ListCheckpoints(ctx context.Context) ([]*models.ImportCheckpoint, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	s.mu.RUnlock()

	var checkpoints []*models.ImportCheckpoint

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(checkpointPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var checkpoint models.ImportCheckpoint
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &checkpoint)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("checkpoint store failed to unmarshal entry")
				continue
			}
			checkpoints = append(checkpoints, &checkpoint)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	return checkpoints, nil
}

// DeleteCheckpoint removes a destination's persisted checkpoint.
func (s *BadgerStore) DeleteCheckpoint(_ context.Context, destinationID string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	key := []byte(checkpointPrefix + destinationID)
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Stats returns current checkpoint-store statistics.
func (s *BadgerStore) Stats() Stats {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return Stats{}
	}

	var count int64
	if err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(checkpointPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	}); err != nil {
		logging.Warn().Err(err).Msg("checkpoint store Stats failed to count entries")
	}

	lsm, vlog := s.db.Size()

	stats := Stats{
		CheckpointCount: count,
		TotalSaves:      s.totalSaves.Load(),
		TotalLoads:      s.totalLoads.Load(),
		DBSizeBytes:     lsm + vlog,
	}
	UpdateCheckpointGauges(count, stats.DBSizeBytes)
	return stats
}

// Close gracefully shuts down the store with a configurable timeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s.mu.Unlock()

	logging.Info().Msg("closing import checkpoint store")

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("import checkpoint store closed")
		return nil
	case <-time.After(timeout):
		logging.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

// RunGC triggers BadgerDB value-log garbage collection. Call periodically
// from the importer's supervisor tree to reclaim space from superseded
// checkpoint versions.
func (s *BadgerStore) RunGC() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Errors
var (
	ErrStoreClosed        = fmt.Errorf("checkpoint store is closed")
	ErrNilCheckpoint      = fmt.Errorf("checkpoint cannot be nil")
	ErrEmptyDestinationID = fmt.Errorf("destination ID cannot be empty")
)
