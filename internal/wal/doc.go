// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
Package wal provides a durable checkpoint store for the archive importer,
backed by BadgerDB.

# Overview

The DuckDB-resident import_checkpoints row (see internal/models.ImportCheckpoint)
is the system of record for import progress. This package keeps a second,
fsynced copy in BadgerDB: the importer calls SaveCheckpoint at the same
points it writes the DuckDB row (each status transition and every
checkpointInterval written batches) and deletes the entry when an import
completes. The importer's resume path reads the DuckDB row.

# Usage

	store, err := wal.Open(&cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveCheckpoint(ctx, checkpoint); err != nil {
	    log.Printf("checkpoint save failed: %v", err)
	}

	// On startup, resume any jobs left mid-flight:
	pending, err := store.ListCheckpoints(ctx)

# Concurrency

BadgerStore is safe for concurrent use. ListCheckpoints reads from a
snapshot-isolated View transaction, so concurrent SaveCheckpoint calls never
produce a partial or torn read.
*/
package wal
