// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/parkwatch/internal/query"
)

const defaultTrendLimit = 10

// TrendsHandler serves /api/v1/trends/..., week-over-week movers and the
// current longest-wait leaderboard.
type TrendsHandler struct {
	queries *query.Service
}

// NewTrendsHandler builds a TrendsHandler over queries.
func NewTrendsHandler(queries *query.Service) *TrendsHandler {
	return &TrendsHandler{queries: queries}
}

func parseTrendLimit(r *http.Request) (int, error) {
	limit := defaultTrendLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, errInvalidLimit
		}
		limit = n
	}
	return limit, nil
}

func parseTrendDirection(r *http.Request, fallback query.TrendDirection) (query.TrendDirection, error) {
	direction := query.TrendDirection(r.URL.Query().Get("direction"))
	if direction == "" {
		direction = fallback
	}
	if direction != query.TrendDeclining && direction != query.TrendImproving {
		return "", errInvalidDirection
	}
	return direction, nil
}

// Parks serves GET /api/v1/trends/{declining,improving}/parks, with the
// direction implied by the route and overridable via ?direction=.
func (h *TrendsHandler) Parks(fallback query.TrendDirection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		direction, err := parseTrendDirection(r, fallback)
		if err != nil {
			WriteBadRequest(w, r, err.Error())
			return
		}
		limit, err := parseTrendLimit(r)
		if err != nil {
			WriteBadRequest(w, r, err.Error())
			return
		}
		rows, err := h.queries.DecliningOrImprovingParks(r.Context(), direction, limit)
		if err != nil {
			WriteDatabaseError(w, r, err)
			return
		}
		WriteSuccess(w, r, rows)
	}
}

// Rides serves GET /api/v1/trends/{declining,improving}/rides.
func (h *TrendsHandler) Rides(fallback query.TrendDirection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		direction, err := parseTrendDirection(r, fallback)
		if err != nil {
			WriteBadRequest(w, r, err.Error())
			return
		}
		limit, err := parseTrendLimit(r)
		if err != nil {
			WriteBadRequest(w, r, err.Error())
			return
		}
		rows, err := h.queries.DecliningOrImprovingRides(r.Context(), direction, limit)
		if err != nil {
			WriteDatabaseError(w, r, err)
			return
		}
		WriteSuccess(w, r, rows)
	}
}

// LongestWaits serves GET /api/v1/trends/longest-waits.
func (h *TrendsHandler) LongestWaits(w http.ResponseWriter, r *http.Request) {
	limit, err := parseTrendLimit(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	rows, err := h.queries.LongestWaits(r.Context(), limit)
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, rows)
}
