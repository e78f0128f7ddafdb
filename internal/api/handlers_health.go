// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import (
	"net/http"

	"github.com/tomtom215/parkwatch/internal/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler builds a HealthHandler backed by db.
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Live always returns 200 once the process is accepting connections; it
// never touches the database, so a database outage doesn't flip liveness
// and trigger a restart loop on top of an already-degraded backend.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{"status": "ok"})
}

// Ready additionally checks the database is reachable, so a load balancer
// can stop routing traffic here while DuckDB is unavailable without
// killing the process.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unreachable")
		return
	}
	WriteSuccess(w, r, map[string]string{"status": "ok"})
}
