// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/parkwatch/internal/models"
)

// ParkInfo is the park-level metadata both upstream clients expose via
// ListParks, before any ride-level snapshot has been fetched.
type ParkInfo struct {
	ExternalID  string
	Name        string
	Timezone    string
	IsDisney    bool
	IsUniversal bool
}

// --- Source A: park-grouped JSON with company ownership metadata ---

type sourceAParksResponse struct {
	Parks []sourceAPark `json:"parks"`
}

type sourceAPark struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Company  string        `json:"company"`
	Timezone string        `json:"timezone"`
	Lands    []sourceALand `json:"lands"`
}

type sourceALand struct {
	Rides []sourceARide `json:"rides"`
}

type sourceARide struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsOpen      *bool     `json:"is_open,omitempty"`
	Status      string    `json:"status,omitempty"`
	WaitTime    *int      `json:"wait_time,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// disneyCompanies and universalCompanies hold the known parent-company
// strings source A reports; matching is case-insensitive substring
// containment since vendors vary ("The Walt Disney Company" vs "Disney").
var (
	disneyCompanies    = []string{"disney"}
	universalCompanies = []string{"universal", "comcast"}
)

func classifyCompany(company string) (isDisney, isUniversal bool) {
	lower := strings.ToLower(company)
	for _, c := range disneyCompanies {
		if strings.Contains(lower, c) {
			isDisney = true
		}
	}
	for _, c := range universalCompanies {
		if strings.Contains(lower, c) {
			isUniversal = true
		}
	}
	return isDisney, isUniversal
}

func mapSourceAStatus(isOpen *bool, status string) models.RideStatus {
	switch strings.ToUpper(status) {
	case "OPERATING", "OPEN":
		return models.StatusOperating
	case "DOWN":
		return models.StatusDown
	case "CLOSED":
		return models.StatusClosed
	case "REFURBISHMENT", "REFURBISHING":
		return models.StatusRefurbishment
	}
	if isOpen != nil {
		if *isOpen {
			return models.StatusOperating
		}
		return models.StatusClosed
	}
	return ""
}

func (r sourceARide) toUpstreamSnapshot(parkExternalID string, isDisney, isUniversal bool) (models.UpstreamSnapshot, error) {
	if r.ID == "" && r.Name == "" {
		return models.UpstreamSnapshot{}, fmt.Errorf("%w: ride has neither id nor name", ErrSchemaViolation)
	}
	ts := r.LastUpdated
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return models.UpstreamSnapshot{
		ExternalParkID:   parkExternalID,
		ExternalRideID:   r.ID,
		ExternalRideName: r.Name,
		Timestamp:        ts.UTC(),
		Status:           mapSourceAStatus(r.IsOpen, r.Status),
		WaitTimeMinutes:  r.WaitTime,
		IsDisney:         isDisney,
		IsUniversal:      isUniversal,
		DataSource:       models.DataSourceLive,
	}, nil
}

// --- Source B: entity-level documents plus gzip archive streams ---

type sourceBEntity struct {
	EntityID    string          `json:"id"`
	ParentID    string          `json:"parentId"`
	Name        string          `json:"name"`
	EntityType  string          `json:"entityType"`
	Status      string          `json:"status"`
	Queue       sourceBQueue    `json:"queue"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

type sourceBQueue struct {
	Standby *sourceBStandbyQueue `json:"STANDBY,omitempty"`
}

type sourceBStandbyQueue struct {
	WaitTime *int `json:"waitTime,omitempty"`
}

type sourceBEntitiesResponse struct {
	Entities []sourceBEntity `json:"entities"`
}

// sourceBArchiveEnvelope tolerates both `{"events": [...]}` and a bare JSON
// array framing for archive files (§4.1).
type sourceBArchiveEnvelope struct {
	Events []sourceBEntity `json:"events"`
}

func mapSourceBStatus(status string) models.RideStatus {
	switch strings.ToUpper(status) {
	case "OPERATING":
		return models.StatusOperating
	case "DOWN":
		return models.StatusDown
	case "CLOSED":
		return models.StatusClosed
	case "REFURBISHMENT":
		return models.StatusRefurbishment
	}
	return ""
}

func (e sourceBEntity) toUpstreamSnapshot(source models.DataSource) (models.UpstreamSnapshot, error) {
	if e.EntityID == "" {
		return models.UpstreamSnapshot{}, fmt.Errorf("%w: entity missing id", ErrSchemaViolation)
	}
	if e.EntityType != "" && !isTrackedEntityType(e.EntityType) {
		return models.UpstreamSnapshot{}, fmt.Errorf("%w: untracked entity type %q", ErrSchemaViolation, e.EntityType)
	}
	ts := e.LastUpdated
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var waitTime *int
	if e.Queue.Standby != nil {
		waitTime = e.Queue.Standby.WaitTime
	}
	return models.UpstreamSnapshot{
		ExternalParkID:   e.ParentID,
		ExternalRideID:   e.EntityID,
		ExternalRideName: e.Name,
		Timestamp:        ts.UTC(),
		Status:           mapSourceBStatus(e.Status),
		WaitTimeMinutes:  waitTime,
		DataSource:       source,
	}, nil
}

func isTrackedEntityType(entityType string) bool {
	switch strings.ToUpper(entityType) {
	case "ATTRACTION", "SHOW", "MEET_AND_GREET", "EXPERIENCE", "RIDE":
		return true
	default:
		return false
	}
}

// mapSourceBCategory maps source B's entityType to our RideCategory enum,
// used by the entity resolver's auto-create path (§4.2).
func mapSourceBCategory(entityType string) models.RideCategory {
	switch strings.ToUpper(entityType) {
	case "SHOW":
		return models.RideCategoryShow
	case "MEET_AND_GREET":
		return models.RideCategoryMeetAndGreet
	case "EXPERIENCE":
		return models.RideCategoryExperience
	default:
		return models.RideCategoryAttraction
	}
}

// ArchiveObjectPath builds the S3-like object path for one day of source B's
// archive, `<dest>/YYYY/MM/DD.json.gz` (§4.1).
func ArchiveObjectPath(destinationID string, day time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%02d.json.gz", destinationID, day.Year(), day.Month(), day.Day())
}
