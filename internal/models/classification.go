// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package models

import "time"

// ClassificationMethod records which step of the classification hierarchy
// (§4.3) produced a RideClassification.
type ClassificationMethod string

const (
	ClassificationManualOverride ClassificationMethod = "manual_override"
	ClassificationCachedMatch    ClassificationMethod = "cached_match"
	ClassificationPattern        ClassificationMethod = "pattern"
	ClassificationAI             ClassificationMethod = "ai"
)

// TierWeights maps tier to its weight in shame-score computation.
// Tier 2 is also the default weight for rides with no classification row.
var TierWeights = map[int]int{1: 3, 2: 2, 3: 1}

// DefaultTier is assigned to auto-created rides and to any ride missing a
// classification row when a weight is needed.
const DefaultTier = 2

// TierWeight returns the configured weight for tier, or the tier-2 default
// if tier is not one of {1,2,3}.
func TierWeight(tier int) int {
	if w, ok := TierWeights[tier]; ok {
		return w
	}
	return TierWeights[DefaultTier]
}

// IsValidTier reports whether tier is one of the three allowed values.
func IsValidTier(tier int) bool {
	_, ok := TierWeights[tier]
	return ok
}

// RideClassification is the canonical record of how a ride's tier was
// decided. The ride row's denormalized Tier column must always equal
// RideClassification.Tier for the same ride; both are written in one
// transaction (§4.3).
type RideClassification struct {
	RideID     string               `json:"ride_id" db:"ride_id"`
	ParkID     string               `json:"park_id" db:"park_id"`
	Tier       int                  `json:"tier" db:"tier"`
	TierWeight int                  `json:"tier_weight" db:"tier_weight"`
	Method     ClassificationMethod `json:"method" db:"method"`
	Confidence float64              `json:"confidence" db:"confidence"`
	Reasoning  string               `json:"reasoning,omitempty" db:"reasoning"`
	Sources    []string             `json:"sources,omitempty" db:"sources"`
	ClassifiedAt time.Time          `json:"classified_at" db:"classified_at"`
}

// AIClassification is the validated shape returned by the out-of-band LLM
// classifier boundary (§9 "AI classifier as a collaborator"). Parsing and
// range validation of the raw response happen before this type is
// constructed; nothing downstream re-validates it.
type AIClassification struct {
	Tier             int      `json:"tier"`
	Category         RideCategory `json:"category"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	ResearchSources  []string `json:"research_sources"`
}

// ManualOverride is one row of the CSV-sourced manual classification table
// (§4.3 step 1), keyed by (park_id, ride_id).
type ManualOverride struct {
	ParkID string
	RideID string
	Tier   int
}

// CachedClassification is one entry of the JSON-file classification cache
// (§4.3 step 2), keyed by "<park_id>:<ride_id>".
type CachedClassification struct {
	Tier       int
	Confidence float64
	Reasoning  string
}
