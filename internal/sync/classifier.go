// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/models"
)

// AIClassifierFunc is the out-of-band LLM classifier boundary (§4.3 step 4,
// §9 "AI classifier as a collaborator"). The implementation lives outside
// this package; RideClassifier only owns response validation.
type AIClassifierFunc func(ctx context.Context, parkName, rideName string) (*models.AIClassification, error)

// RideClassifier implements the four-step classification hierarchy,
// short-circuiting on the first step that produces a result, and persists
// the outcome via database.DB.WriteClassification.
type RideClassifier struct {
	db *database.DB

	mu        sync.RWMutex
	overrides map[string]models.ManualOverride   // "park_id:ride_id"
	cached    map[string]models.CachedClassification

	aiClassifier AIClassifierFunc
}

// NewRideClassifier builds a classifier against db. The manual override and
// cache files are optional; a missing path is treated as an empty table so
// the hierarchy simply falls through to the next step. aiClassifier may be
// nil, in which case step 4 is skipped.
func NewRideClassifier(db *database.DB, overridesCSVPath, cacheJSONPath string, aiClassifier AIClassifierFunc) (*RideClassifier, error) {
	c := &RideClassifier{
		db:           db,
		overrides:    make(map[string]models.ManualOverride),
		cached:       make(map[string]models.CachedClassification),
		aiClassifier: aiClassifier,
	}

	if overridesCSVPath != "" {
		if err := c.loadOverrides(overridesCSVPath); err != nil {
			return nil, fmt.Errorf("load manual overrides: %w", err)
		}
	}
	if cacheJSONPath != "" {
		if err := c.loadCache(cacheJSONPath); err != nil {
			return nil, fmt.Errorf("load classification cache: %w", err)
		}
	}
	return c, nil
}

func (c *RideClassifier) loadOverrides(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		logging.Info().Str("path", path).Msg("no manual override file present, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	// header row: park_id,ride_id,tier
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		tier, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil || !models.IsValidTier(tier) {
			logging.Warn().Strs("record", record).Msg("skipping manual override with invalid tier")
			continue
		}
		override := models.ManualOverride{ParkID: record[0], RideID: record[1], Tier: tier}
		c.overrides[overrideKey(override.ParkID, override.RideID)] = override
	}
	return nil
}

func (c *RideClassifier) loadCache(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logging.Info().Str("path", path).Msg("no classification cache file present, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	var raw map[string]models.CachedClassification
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode cache json: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = raw
	return nil
}

func overrideKey(parkID, rideID string) string {
	return parkID + ":" + rideID
}

// Classify runs the four-step hierarchy for one ride and persists the
// result. Returns ErrNoClassification only if every step, including a
// configured AI classifier, produced nothing — callers should fall back to
// models.DefaultTier rather than leaving the ride unclassified indefinitely.
func (c *RideClassifier) Classify(ctx context.Context, parkID, parkName string, ride *models.Ride) (*models.RideClassification, error) {
	c.mu.RLock()
	override, hasOverride := c.overrides[overrideKey(parkID, ride.ID)]
	cached, hasCached := c.cached[overrideKey(parkID, ride.ID)]
	c.mu.RUnlock()

	var result *models.RideClassification
	now := time.Now().UTC()

	switch {
	case hasOverride:
		result = &models.RideClassification{
			RideID: ride.ID, ParkID: parkID, Tier: override.Tier,
			TierWeight: models.TierWeight(override.Tier), Method: models.ClassificationManualOverride,
			Confidence: 1.00, ClassifiedAt: now,
		}
	case hasCached:
		result = &models.RideClassification{
			RideID: ride.ID, ParkID: parkID, Tier: cached.Tier,
			TierWeight: models.TierWeight(cached.Tier), Method: models.ClassificationCachedMatch,
			Confidence: cached.Confidence, Reasoning: cached.Reasoning, ClassifiedAt: now,
		}
	default:
		if tier, confidence, ok := matchPattern(ride.Name); ok {
			result = &models.RideClassification{
				RideID: ride.ID, ParkID: parkID, Tier: tier,
				TierWeight: models.TierWeight(tier), Method: models.ClassificationPattern,
				Confidence: confidence, ClassifiedAt: now,
			}
		} else if c.aiClassifier != nil {
			ai, err := c.aiClassifier(ctx, parkName, ride.Name)
			if err != nil {
				logging.Warn().Str("ride_id", ride.ID).Err(err).Msg("ai classifier call failed")
			} else if valid, reason := validateAIClassification(ai); valid {
				result = &models.RideClassification{
					RideID: ride.ID, ParkID: parkID, Tier: ai.Tier,
					TierWeight: models.TierWeight(ai.Tier), Method: models.ClassificationAI,
					Confidence: ai.Confidence, Reasoning: ai.Reasoning,
					Sources: ai.ResearchSources, ClassifiedAt: now,
				}
			} else {
				logging.Warn().Str("ride_id", ride.ID).Str("reason", reason).Msg("rejecting ai classification")
			}
		}
	}

	if result == nil {
		return nil, ErrNoClassification
	}
	if err := c.db.WriteClassification(ctx, result); err != nil {
		return nil, fmt.Errorf("write classification for ride %s: %w", ride.ID, err)
	}
	return result, nil
}

// --- Pattern matcher (§4.3 step 3) ---

// ridePattern pairs a keyword regex with a confidence, so multi-word
// phrases that rarely collide with an unrelated ride name ("tower of
// terror") can carry more weight than a generic single word ("falls").
type ridePattern struct {
	re         *regexp.Regexp
	confidence float64
}

var (
	flagshipPatterns = []ridePattern{
		{regexp.MustCompile(`tower of terror`), 0.85},
		{regexp.MustCompile(`flight of`), 0.80},
		{regexp.MustCompile(`coaster`), 0.75},
		{regexp.MustCompile(`mountain`), 0.70},
		{regexp.MustCompile(`rapids?`), 0.70},
		{regexp.MustCompile(`falls?`), 0.60},
	}
	kiddiePatterns = []ridePattern{
		{regexp.MustCompile(`carousel|carrousel`), 0.80},
		{regexp.MustCompile(`kiddie`), 0.80},
		{regexp.MustCompile(`\bjr\.?\b|junior`), 0.75},
		{regexp.MustCompile(`train ride`), 0.70},
		{regexp.MustCompile(`theater|theatre`), 0.60},
	}
)

// matchPattern applies keyword rules against a ride's normalized name,
// returning tier 1 for flagship coaster/water-ride patterns, tier 3 for
// kiddie/carousel/theater patterns, and ok=false otherwise (§4.3 step 3).
func matchPattern(name string) (tier int, confidence float64, ok bool) {
	normalized := normalizeRideName(name)

	for _, p := range flagshipPatterns {
		if p.re.MatchString(normalized) {
			return 1, p.confidence, true
		}
	}
	for _, p := range kiddiePatterns {
		if p.re.MatchString(normalized) {
			return 3, p.confidence, true
		}
	}
	return 0, 0, false
}

// validAICategories is the enumerated ride category set the AI classifier's
// response is allowed to use.
var validAICategories = map[models.RideCategory]bool{
	models.RideCategoryAttraction:   true,
	models.RideCategoryShow:         true,
	models.RideCategoryMeetAndGreet: true,
	models.RideCategoryExperience:   true,
}

// validateAIClassification enforces §4.3 step 4's acceptance rules: tier in
// {1,2,3}, category in the enumerated set, confidence in [0.50, 1.00].
func validateAIClassification(ai *models.AIClassification) (bool, string) {
	if ai == nil {
		return false, "nil response"
	}
	if !models.IsValidTier(ai.Tier) {
		return false, fmt.Sprintf("tier %d outside {1,2,3}", ai.Tier)
	}
	if ai.Category != "" && !validAICategories[ai.Category] {
		return false, fmt.Sprintf("category %q not in enumerated set", ai.Category)
	}
	if ai.Confidence < 0.50 || ai.Confidence > 1.00 {
		return false, fmt.Sprintf("confidence %.2f outside [0.50, 1.00]", ai.Confidence)
	}
	return true, ""
}
