// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// AggregationType names which rollup an AggregationLog row describes.
// Hourly, daily and weekly runs execute in that order within one aggregator
// tick; a daily or weekly run does not check for a successful lower-tier
// row before it starts.
type AggregationType string

const (
	AggregationHourly AggregationType = "hourly"
	AggregationDaily  AggregationType = "daily"
	AggregationWeekly AggregationType = "weekly"
)

// AggregationStatus is the run state of one AggregationLog row.
type AggregationStatus string

const (
	AggregationRunning AggregationStatus = "running"
	AggregationSuccess AggregationStatus = "success"
	AggregationFailed  AggregationStatus = "failed"
)

// StuckThreshold is how long a `running` row may stay unresolved before a
// later run is entitled to treat it as failed and retry (§5).
const StuckThreshold = 6 * time.Hour

// AggregationLog is the safe-cleanup barrier keyed on
// (aggregation_date, aggregation_type): retention and any process that
// deletes raw data it has rolled up must see a `success` row for the
// relevant date before it proceeds (§3, §7).
type AggregationLog struct {
	AggregationDate string            `json:"aggregation_date" db:"aggregation_date"` // hourly YYYY-MM-DDTHH, daily YYYY-MM-DD, weekly YYYY-Www
	AggregationType AggregationType   `json:"aggregation_type" db:"aggregation_type"`
	Status          AggregationStatus `json:"status" db:"status"`
	RowsWritten     int64             `json:"rows_written" db:"rows_written"`
	ErrorMessage    string            `json:"error_message,omitempty" db:"error_message"`
	StartedAt       time.Time         `json:"started_at" db:"started_at"`
	FinishedAt      *time.Time        `json:"finished_at,omitempty" db:"finished_at"`
}

// IsStuck reports whether a running row is old enough to be treated as
// failed by a subsequent attempt for the same key.
func (l AggregationLog) IsStuck(now time.Time) bool {
	return l.Status == AggregationRunning && now.Sub(l.StartedAt) > StuckThreshold
}

// Succeeded reports whether retention or a downstream aggregation may
// treat this date/type as a safe barrier to proceed past.
func (l AggregationLog) Succeeded() bool {
	return l.Status == AggregationSuccess
}
