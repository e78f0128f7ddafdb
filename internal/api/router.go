// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/parkwatch/internal/auth"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/importer"
	"github.com/tomtom215/parkwatch/internal/query"
)

// RouterConfig holds everything NewRouter needs to wire the full API
// surface.
type RouterConfig struct {
	DB        *database.DB
	Queries   *query.Service
	ImportMgr *importer.Manager
	Auth      *auth.MiddlewareV2
	ChiMW     *ChiMiddleware
}

// NewRouter assembles the chi.Mux serving every endpoint described in
// doc.go: health, rankings, trends, charts, and the admin import surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(APISecurityHeaders())
	r.Use(cfg.ChiMW.CORS())
	r.Use(cfg.ChiMW.RateLimitByRealIP())

	health := NewHealthHandler(cfg.DB)
	r.Get("/healthz", health.Live)
	r.Get("/readyz", health.Ready)

	rankings := NewRankingsHandler(cfg.Queries)
	r.Get("/rides/waittimes", rankings.Rides)
	r.Get("/parks/shamelist", rankings.Parks)

	trends := NewTrendsHandler(cfg.Queries)
	r.Route("/api/v1/trends", func(r chi.Router) {
		r.Get("/declining/parks", trends.Parks(query.TrendDeclining))
		r.Get("/improving/parks", trends.Parks(query.TrendImproving))
		r.Get("/declining/rides", trends.Rides(query.TrendDeclining))
		r.Get("/improving/rides", trends.Rides(query.TrendImproving))
		r.Get("/longest-waits", trends.LongestWaits)
	})

	charts := NewChartsHandler(cfg.Queries)
	r.Route("/api/v1/charts", func(r chi.Router) {
		r.Get("/park-rides-comparison", charts.ParkRidesComparison)
		r.Get("/ride-waittime-history", charts.RideWaitTimeHistory)
	})

	admin := NewAdminHandler(cfg.DB, cfg.ImportMgr)
	r.Route("/admin", func(r chi.Router) {
		r.Use(AuthenticateChi(cfg.Auth))
		r.Use(RequireAdminMiddleware())
		r.Get("/storage", admin.Storage)
		r.Get("/imports", admin.ListImports)
		r.Post("/imports", admin.StartImport)
		r.Get("/imports/{id}/quality", admin.ImportQuality)
		r.Post("/imports/{destinationID}/pause", admin.PauseImport)
		r.Post("/imports/{destinationID}/resume", admin.ResumeImport)
		r.Post("/imports/{destinationID}/cancel", admin.CancelImport)
	})

	return r
}
