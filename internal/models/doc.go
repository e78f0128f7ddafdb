// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package models provides the data records shared across collection,
// aggregation, materialization and query. Every cross-component shape is a
// named, typed record; SQL rows are decoded into these immediately at the
// database package boundary, never passed around as maps.
package models
