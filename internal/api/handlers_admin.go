// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/importer"
)

// AdminHandler serves the /admin import-control and storage surface
// (§4.8, §6). Every route here sits behind RequireAdminMiddleware.
type AdminHandler struct {
	db        *database.DB
	importMgr *importer.Manager
}

// NewAdminHandler builds an AdminHandler over db and importMgr.
func NewAdminHandler(db *database.DB, importMgr *importer.Manager) *AdminHandler {
	return &AdminHandler{db: db, importMgr: importMgr}
}

type startImportRequest struct {
	DestinationID string `json:"destination_id"`
	StartDate     string `json:"start_date"` // YYYY-MM-DD
	EndDate       string `json:"end_date"`   // YYYY-MM-DD
}

// StartImport serves POST /admin/imports.
func (h *AdminHandler) StartImport(w http.ResponseWriter, r *http.Request) {
	var req startImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid request body")
		return
	}
	if req.DestinationID == "" {
		WriteBadRequest(w, r, "destination_id is required")
		return
	}

	start, end, err := parseImportWindow(req.StartDate, req.EndDate)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	if err := h.importMgr.Start(req.DestinationID, start, end); err != nil {
		if errors.Is(err, importer.ErrUnknownDestination) {
			WriteNotFound(w, r, err.Error())
			return
		}
		if errors.Is(err, importer.ErrAlreadyRunning) {
			WriteError(w, r, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		WriteInternalError(w, r, err.Error())
		return
	}
	WriteSuccess(w, r, map[string]string{"destination_id": req.DestinationID, "status": "started"})
}

// PauseImport serves POST /admin/imports/{destinationID}/pause.
func (h *AdminHandler) PauseImport(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destinationID")
	if err := h.importMgr.Pause(destinationID); err != nil {
		if errors.Is(err, importer.ErrNotRunning) {
			WriteError(w, r, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		WriteInternalError(w, r, err.Error())
		return
	}
	WriteSuccess(w, r, map[string]string{"destination_id": destinationID, "status": "pausing"})
}

type resumeImportRequest struct {
	EndDate string `json:"end_date"`
}

// ResumeImport serves POST /admin/imports/{destinationID}/resume.
func (h *AdminHandler) ResumeImport(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destinationID")

	var req resumeImportRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	end := time.Now().UTC()
	if req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			WriteBadRequest(w, r, "end_date must be YYYY-MM-DD")
			return
		}
		end = parsed
	}

	if err := h.importMgr.Resume(r.Context(), destinationID, end); err != nil {
		WriteInternalError(w, r, err.Error())
		return
	}
	WriteSuccess(w, r, map[string]string{"destination_id": destinationID, "status": "resumed"})
}

// CancelImport serves POST /admin/imports/{destinationID}/cancel.
func (h *AdminHandler) CancelImport(w http.ResponseWriter, r *http.Request) {
	destinationID := chi.URLParam(r, "destinationID")
	if err := h.importMgr.Cancel(r.Context(), destinationID); err != nil {
		WriteInternalError(w, r, err.Error())
		return
	}
	WriteSuccess(w, r, map[string]string{"destination_id": destinationID, "status": "cancelled"})
}

// ListImports serves GET /admin/imports.
func (h *AdminHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := h.importMgr.List(r.Context())
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, checkpoints)
}

// ImportQuality serves GET /admin/imports/{id}/quality.
func (h *AdminHandler) ImportQuality(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "id")
	issues, err := h.importMgr.QualityReport(r.Context(), importID)
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, issues)
}

// Storage serves GET /admin/storage.
func (h *AdminHandler) Storage(w http.ResponseWriter, r *http.Request) {
	samples, err := h.db.GetLatestStorageMetrics(r.Context())
	if err != nil {
		WriteDatabaseError(w, r, err)
		return
	}
	WriteSuccess(w, r, samples)
}

func parseImportWindow(startDate, endDate string) (start, end time.Time, err error) {
	if startDate == "" {
		start = time.Now().UTC().AddDate(0, 0, -30)
	} else {
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start_date must be YYYY-MM-DD")
		}
	}
	if endDate == "" {
		end = time.Now().UTC()
	} else {
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end_date must be YYYY-MM-DD")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end_date must not precede start_date")
	}
	return start, end, nil
}
