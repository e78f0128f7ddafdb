// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
Package api provides the HTTP REST API layer for Parkwatch.

It serves the read-side ranking, trend, and chart queries internal/query
answers, plus the archive-import admin surface internal/importer drives.
It is the only component that talks HTTP; everything else in the repo is a
scheduled job or a library called from here.

API Categories:

1. Health (/healthz, /readyz):
  - Liveness: process is up.
  - Readiness: database is reachable.

2. Rankings (/rides/waittimes, /parks/shamelist):
  - period in {live, today, yesterday, last_week, last_month}
  - optional filter in {all-parks, disney-universal}
  - uniform field vocabulary: avg_wait_minutes, peak_wait_minutes,
    trend_percentage, tier, rides_reporting, current_is_open,
    current_status, park_is_open.

3. Trends (/api/v1/trends/...):
  - declining/improving parks and rides, week-over-week.
  - longest-waits, current wait time leaderboard.

4. Charts (/api/v1/charts/...):
  - Chart.js-shaped {labels, datasets} time series.
  - Heatmap reshaping for the same data (?heatmap=true).

5. Admin import surface (/admin/...), RequireAdminMiddleware-gated:
  - start, pause, resume, cancel, list archive-backfill jobs.
  - per-job data quality report.
  - storage metrics snapshot.

Usage Example:

	db, _ := database.New(cfg.Database)
	queries := query.NewService(db, cfg.Query, cfg.Collector.SnapshotIntervalMinutes)
	importMgr := importer.NewManager(runner, db, targets)
	authMW, _ := auth.NewMiddlewareV2(authCfg)

	router := api.NewRouter(api.RouterConfig{
	    DB:        db,
	    Queries:   queries,
	    ImportMgr: importMgr,
	    Auth:      authMW,
	    ChiMW:     api.NewChiMiddlewareFromAuth(cfg.Security.CORSOrigins, cfg.Security.RateLimitPerMin, time.Minute, cfg.Security.RateLimitDisabled),
	})
	http.ListenAndServe(addr, router)

See Also:

  - internal/query: ranking/trend/chart read models
  - internal/importer: archive backfill state machine
  - internal/auth: authentication and role checks
  - internal/middleware: generic HTTP middleware components
*/
package api
