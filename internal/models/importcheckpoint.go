// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import (
	"fmt"
	"time"
)

// ImportStatus is a state in the archive importer's checkpoint state
// machine (§4.8):
//
//	PENDING ─► IN_PROGRESS ─► COMPLETED
//	               ▲  │
//	               │  ├─► PAUSED ─┐
//	               │  ├─► FAILED ─┤
//	               │  └─► CANCELLED
//	               └──────────────┘
//
// PAUSED and FAILED are resumable (back to IN_PROGRESS); PENDING, PAUSED and
// FAILED may also move to CANCELLED. COMPLETED and CANCELLED are terminal.
type ImportStatus string

const (
	ImportPending    ImportStatus = "PENDING"
	ImportInProgress ImportStatus = "IN_PROGRESS"
	ImportPaused     ImportStatus = "PAUSED"
	ImportCompleted  ImportStatus = "COMPLETED"
	ImportFailed     ImportStatus = "FAILED"
	ImportCancelled  ImportStatus = "CANCELLED"
)

// importTransitions enumerates the legal next states for each status.
var importTransitions = map[ImportStatus][]ImportStatus{
	ImportPending:    {ImportInProgress, ImportCancelled},
	ImportInProgress: {ImportCompleted, ImportPaused, ImportFailed, ImportCancelled},
	ImportPaused:     {ImportInProgress, ImportCancelled},
	ImportFailed:     {ImportInProgress, ImportCancelled},
	ImportCompleted:  {},
	ImportCancelled:  {},
}

// CanTransition reports whether moving from the receiver to next is legal.
func (s ImportStatus) CanTransition(next ImportStatus) bool {
	for _, allowed := range importTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Resumable reports whether an import in this status can be restarted
// with IN_PROGRESS.
func (s ImportStatus) Resumable() bool {
	return s == ImportPaused || s == ImportFailed
}

// ImportCheckpoint tracks one archive-backfill job for one external
// destination. LastProcessedDate/LastProcessedFile and the counters are
// persisted atomically every IMPORT_CHECKPOINT_INTERVAL batches (§4.8); on
// resume, processing continues from LastProcessedDate plus one day.
type ImportCheckpoint struct {
	ID                string       `json:"id" db:"id"`
	DestinationID     string       `json:"destination_id" db:"destination_id"` // external source UUID
	Status            ImportStatus `json:"status" db:"status"`
	LastProcessedDate *time.Time   `json:"last_processed_date,omitempty" db:"last_processed_date"`
	LastProcessedFile string       `json:"last_processed_file,omitempty" db:"last_processed_file"`
	RecordsImported   int64        `json:"records_imported" db:"records_imported"`
	ErrorsEncountered int64        `json:"errors_encountered" db:"errors_encountered"`
	StartDate         *time.Time   `json:"start_date,omitempty" db:"start_date"`
	EndDate           *time.Time   `json:"end_date,omitempty" db:"end_date"`
	FailureReason     string       `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// ResumeFrom returns the date processing should continue from: the day
// after LastProcessedDate, or StartDate if nothing has been processed yet.
func (c ImportCheckpoint) ResumeFrom() *time.Time {
	if c.LastProcessedDate != nil {
		next := c.LastProcessedDate.AddDate(0, 0, 1)
		return &next
	}
	return c.StartDate
}

// Transition validates and applies a status change, returning an error
// naming both states if the move is illegal. The caller is responsible for
// persisting the result.
func (c *ImportCheckpoint) Transition(next ImportStatus) error {
	if !c.Status.CanTransition(next) {
		return fmt.Errorf("import checkpoint %s: illegal transition %s -> %s", c.ID, c.Status, next)
	}
	c.Status = next
	return nil
}

// QualityIssueType enumerates DataQualityLog issue categories.
type QualityIssueType string

const (
	IssueParseError       QualityIssueType = "PARSE_ERROR"
	IssueMappingFailed    QualityIssueType = "MAPPING_FAILED"
	IssueTransportError   QualityIssueType = "TRANSPORT_ERROR"
	IssueClassificationFallback QualityIssueType = "CLASSIFICATION_FALLBACK"
)

// DataQualityLog records one recoverable data-quality issue observed
// during collection or import. Rows are append-only and never block the
// cycle or import they describe (§7).
type DataQualityLog struct {
	ID          int64            `json:"id" db:"id"`
	ImportID    string           `json:"import_id,omitempty" db:"import_id"` // empty for live-collection issues
	IssueType   QualityIssueType `json:"issue_type" db:"issue_type"`
	EntityType  string           `json:"entity_type,omitempty" db:"entity_type"` // "park" | "ride" | "snapshot"
	ExternalID  string           `json:"external_id,omitempty" db:"external_id"`
	Description string           `json:"description" db:"description"`
	Timestamp   time.Time        `json:"timestamp" db:"timestamp"`
}
