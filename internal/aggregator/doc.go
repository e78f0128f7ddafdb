// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package aggregator runs the hourly/daily/weekly rollup chain (§4.5) on a
// ticker, the same way internal/newsletter/scheduler drives newsletter
// delivery in the teacher: a single check-interval ticker fires
// checkAndExecute, which is safe to call redundantly because every tier is
// gated by the internal/database aggregation_log barrier. No raw SQL lives
// here; every computation is delegated to *database.DB.
package aggregator
