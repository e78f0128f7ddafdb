// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/parkwatch/internal/models"
	"github.com/tomtom215/parkwatch/internal/query"
)

const defaultRankingLimit = 50

// RankingsHandler serves the /rides/waittimes and /parks/shamelist
// endpoints, the public read side of §4.7's ranking query layer.
type RankingsHandler struct {
	queries *query.Service
}

// NewRankingsHandler builds a RankingsHandler over queries.
func NewRankingsHandler(queries *query.Service) *RankingsHandler {
	return &RankingsHandler{queries: queries}
}

func parseRankingParams(r *http.Request) (models.RankingPeriod, query.Filter, int, error) {
	period := models.RankingPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = models.PeriodToday
	}
	if !models.IsValidRankingPeriod(period) {
		return "", "", 0, errInvalidPeriod
	}

	filter := query.Filter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = query.FilterAllParks
	}
	if !query.IsValidFilter(filter) {
		return "", "", 0, errInvalidFilter
	}

	limit := defaultRankingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return "", "", 0, errInvalidLimit
		}
		limit = n
	}

	return period, filter, limit, nil
}

// Rides serves GET /rides/waittimes?period=&filter=&limit=.
func (h *RankingsHandler) Rides(w http.ResponseWriter, r *http.Request) {
	period, filter, limit, err := parseRankingParams(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	rows, err := h.queries.RideRankings(r.Context(), period, filter, limit)
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, rows)
}

// Parks serves GET /parks/shamelist?period=&filter=&limit=.
func (h *RankingsHandler) Parks(w http.ResponseWriter, r *http.Request) {
	period, filter, limit, err := parseRankingParams(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	rows, err := h.queries.ParkRankings(r.Context(), period, filter, limit)
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, rows)
}
