// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/models"
)

// ErrUnknownDestination indicates a destination ID not present in the
// configured import targets.
var ErrUnknownDestination = fmt.Errorf("unknown import destination")

// ErrAlreadyRunning indicates a start/resume request for a destination
// that already has an import in flight.
var ErrAlreadyRunning = fmt.Errorf("import already running for destination")

// ErrNotRunning indicates a pause/cancel request for a destination with no
// in-flight import.
var ErrNotRunning = fmt.Errorf("no import running for destination")

// Manager coordinates on-demand import runs for the admin HTTP surface
// (§6). Runner.Import itself is a single synchronous call per destination;
// Manager adds the bookkeeping an HTTP handler needs on top of it — start
// in the background, cancel a running one cleanly (Runner.Import maps
// context.Canceled to a PAUSED checkpoint, so cancellation is how pause is
// implemented), and report what's currently in flight.
type Manager struct {
	runner  *Runner
	db      *database.DB
	targets map[string]Target

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewManager builds a Manager over runner, keyed by the same destination
// targets cmd/server resolves at startup.
func NewManager(runner *Runner, db *database.DB, targets map[string]Target) *Manager {
	return &Manager{
		runner:  runner,
		db:      db,
		targets: targets,
		running: make(map[string]context.CancelFunc),
	}
}

func (m *Manager) target(destinationID string) (Target, error) {
	target, ok := m.targets[destinationID]
	if !ok {
		return Target{}, fmt.Errorf("%w: %s", ErrUnknownDestination, destinationID)
	}
	return target, nil
}

// Start launches a new (or resumed) import for destinationID in the
// background, covering [start, end]. Returns ErrAlreadyRunning if one is
// already in flight for that destination.
func (m *Manager) Start(destinationID string, start, end time.Time) error {
	target, err := m.target(destinationID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.running[destinationID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, destinationID)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.running[destinationID] = cancel
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.running, destinationID)
			m.mu.Unlock()
		}()
		if err := m.runner.Import(runCtx, target, start, end); err != nil {
			logging.Warn().Err(err).Str("destination_id", destinationID).Msg("archive import run ended with error")
		}
	}()
	return nil
}

// Pause cancels the in-flight import for destinationID. Runner.Import
// persists the checkpoint as PAUSED on cancellation; resuming later
// continues from LastProcessedDate+1 regardless of the window Start was
// first called with.
func (m *Manager) Pause(destinationID string) error {
	m.mu.Lock()
	cancel, exists := m.running[destinationID]
	m.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotRunning, destinationID)
	}
	cancel()
	return nil
}

// Resume restarts a PAUSED or FAILED import for destinationID through end,
// same mechanism as Start.
func (m *Manager) Resume(ctx context.Context, destinationID string, end time.Time) error {
	checkpoint, found, err := m.db.GetImportCheckpoint(ctx, destinationID)
	if err != nil {
		return fmt.Errorf("resume: load checkpoint for %s: %w", destinationID, err)
	}
	if !found || !checkpoint.Status.Resumable() {
		return fmt.Errorf("resume: destination %s has no resumable checkpoint", destinationID)
	}
	start := time.Now().UTC()
	if checkpoint.StartDate != nil {
		start = *checkpoint.StartDate
	}
	return m.Start(destinationID, start, end)
}

// Cancel stops any in-flight run for destinationID and marks its checkpoint
// CANCELLED, a terminal state per the §4.8 state machine.
func (m *Manager) Cancel(ctx context.Context, destinationID string) error {
	m.mu.Lock()
	cancel, running := m.running[destinationID]
	m.mu.Unlock()
	if running {
		cancel()
	}

	checkpoint, found, err := m.db.GetImportCheckpoint(ctx, destinationID)
	if err != nil {
		return fmt.Errorf("cancel: load checkpoint for %s: %w", destinationID, err)
	}
	if !found {
		return fmt.Errorf("cancel: no checkpoint for destination %s", destinationID)
	}
	if checkpoint.Status == models.ImportCancelled || checkpoint.Status == models.ImportCompleted {
		return nil
	}
	if err := checkpoint.Transition(models.ImportCancelled); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	checkpoint.UpdatedAt = time.Now().UTC()
	return m.db.UpsertImportCheckpoint(ctx, checkpoint)
}

// Status returns the current checkpoint for destinationID.
func (m *Manager) Status(ctx context.Context, destinationID string) (*models.ImportCheckpoint, bool, error) {
	return m.db.GetImportCheckpoint(ctx, destinationID)
}

// List returns the latest checkpoint for every destination ever imported.
func (m *Manager) List(ctx context.Context) ([]*models.ImportCheckpoint, error) {
	return m.db.ListImportCheckpoints(ctx)
}

// QualityReport returns every data quality issue recorded against the
// checkpoint(s) for destinationID's most recent import.
func (m *Manager) QualityReport(ctx context.Context, importID string) ([]*models.DataQualityLog, error) {
	return m.db.ListDataQualityLogsByImportID(ctx, importID)
}

// IsRunning reports whether destinationID currently has an import in
// flight under this Manager.
func (m *Manager) IsRunning(destinationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[destinationID]
	return ok
}
