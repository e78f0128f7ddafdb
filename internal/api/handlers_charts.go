// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import (
	"net/http"

	"github.com/tomtom215/parkwatch/internal/query"
)

// ChartsHandler serves /api/v1/charts/..., Chart.js-shaped time series and
// their heatmap reshaping.
type ChartsHandler struct {
	queries *query.Service
}

// NewChartsHandler builds a ChartsHandler over queries.
func NewChartsHandler(queries *query.Service) *ChartsHandler {
	return &ChartsHandler{queries: queries}
}

func parseChartDateRange(r *http.Request) (startDate, endDate string, err error) {
	startDate = r.URL.Query().Get("start_date")
	endDate = r.URL.Query().Get("end_date")
	if startDate == "" || endDate == "" {
		return "", "", errMissingDateRange
	}
	return startDate, endDate, nil
}

// ParkRidesComparison serves GET /api/v1/charts/park-rides-comparison.
// ?heatmap=true reshapes the response into the entities/time_labels/matrix
// form instead of labels/datasets.
func (h *ChartsHandler) ParkRidesComparison(w http.ResponseWriter, r *http.Request) {
	parkID := r.URL.Query().Get("park_id")
	if parkID == "" {
		WriteBadRequest(w, r, "park_id is required")
		return
	}
	startDate, endDate, err := parseChartDateRange(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	chart, err := h.queries.ParkRidesComparison(r.Context(), parkID, startDate, endDate)
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}

	if r.URL.Query().Get("heatmap") == "true" {
		WriteSuccess(w, r, query.AsHeatmap(chart))
		return
	}
	WriteSuccess(w, r, chart)
}

// RideWaitTimeHistory serves GET /api/v1/charts/ride-waittime-history.
func (h *ChartsHandler) RideWaitTimeHistory(w http.ResponseWriter, r *http.Request) {
	rideID := r.URL.Query().Get("ride_id")
	parkID := r.URL.Query().Get("park_id")
	if rideID == "" || parkID == "" {
		WriteBadRequest(w, r, "ride_id and park_id are required")
		return
	}
	startDate, endDate, err := parseChartDateRange(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	chart, err := h.queries.RideWaitTimeHistory(r.Context(), rideID, parkID, startDate, endDate)
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, chart)
}
