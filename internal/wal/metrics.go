// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package wal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkpointSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_checkpoint_store_saves_total",
		Help: "Total number of checkpoint saves to the durable store",
	})

	checkpointLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_checkpoint_store_loads_total",
		Help: "Total number of checkpoint loads from the durable store",
	})

	checkpointEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "import_checkpoint_store_entries",
		Help: "Current number of checkpoints held in the durable store",
	})

	checkpointDBSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "import_checkpoint_store_size_bytes",
		Help: "Estimated on-disk size of the checkpoint store",
	})
)

// RecordCheckpointSave increments the checkpoint-save counter.
func RecordCheckpointSave() {
	checkpointSaves.Inc()
}

// RecordCheckpointLoad increments the checkpoint-load counter.
func RecordCheckpointLoad() {
	checkpointLoads.Inc()
}

// UpdateCheckpointGauges updates the entry-count and size gauges.
func UpdateCheckpointGauges(count, dbSizeBytes int64) {
	checkpointEntries.Set(float64(count))
	checkpointDBSize.Set(float64(dbSizeBytes))
}
