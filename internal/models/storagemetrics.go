// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// StorageMetrics is a point-in-time snapshot of one table's footprint,
// sampled periodically by the storage reporter and exposed over the admin
// surface and as Prometheus gauges.
type StorageMetrics struct {
	TableName      string    `json:"table_name" db:"table_name"`
	RowCount       int64     `json:"row_count" db:"row_count"`
	DataSizeBytes  int64     `json:"data_size_bytes" db:"data_size_bytes"`
	IndexSizeBytes int64     `json:"index_size_bytes" db:"index_size_bytes"`
	GrowthPerDay   float64   `json:"growth_rows_per_day" db:"growth_rows_per_day"`
	SampledAt      time.Time `json:"sampled_at" db:"sampled_at"`
}

// TotalSizeBytes is the combined data and index footprint.
func (m StorageMetrics) TotalSizeBytes() int64 {
	return m.DataSizeBytes + m.IndexSizeBytes
}
