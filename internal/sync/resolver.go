// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
	"github.com/tomtom215/parkwatch/internal/models"
)

// fuzzyMatchMinRatio is the acceptance bar for step 3 of entity resolution,
// "confidence = 1 - distance/max_len, accept only if >= 0.80" (§4.2).
const fuzzyMatchMinRatio = 0.80

// EntityResolver maps upstream ride records onto internal ride rows using
// the three-step hierarchy in §4.2: exact external ID, exact normalized
// name, then fuzzy normalized name. When none match, it either auto-creates
// the ride (if configured) or reports ErrMappingFailed.
//
// Per-park caches avoid one round trip per ride per cycle: ListParks/
// FetchCurrent happen once per park per cycle, so a single GetRidesForPark
// call seeds both the external-ID index and the name index up front. A
// cache is invalidated whenever this resolver writes a new ride into that
// park, since a later record in the same cycle might match it.
type EntityResolver struct {
	db         *database.DB
	autoCreate bool

	mu     sync.Mutex
	caches map[string]*parkCache
}

type parkCache struct {
	rides      []*models.Ride
	byExternal map[string]*models.Ride
	byName     map[string]*models.Ride
}

// NewEntityResolver builds a resolver against db. autoCreate controls
// whether an unmatched upstream record creates a new ride row or is
// reported as a mapping failure.
func NewEntityResolver(db *database.DB, autoCreate bool) *EntityResolver {
	return &EntityResolver{
		db:         db,
		autoCreate: autoCreate,
		caches:     make(map[string]*parkCache),
	}
}

// ResolveResult is the outcome of resolving one upstream snapshot to an
// internal ride, including which hierarchy step produced the match (used
// for metrics.RecordEntityResolution's "method" label).
type ResolveResult struct {
	Ride   *models.Ride
	Method string // exact, alias, fuzzy, created
}

// Resolve maps one upstream snapshot to an internal ride. If no step
// matches and auto-create is disabled, it logs a MAPPING_FAILED data
// quality issue and returns ErrMappingFailed; the collector is expected to
// drop the snapshot and continue the cycle rather than fail it.
func (r *EntityResolver) Resolve(ctx context.Context, parkID string, snapshot models.UpstreamSnapshot, category models.RideCategory) (*ResolveResult, error) {
	cache, err := r.cacheFor(ctx, parkID)
	if err != nil {
		return nil, fmt.Errorf("load park cache for %s: %w", parkID, err)
	}

	if snapshot.ExternalRideID != "" {
		if ride, ok := cache.byExternal[snapshot.ExternalRideID]; ok {
			metrics.RecordEntityResolution("ride", "exact")
			return &ResolveResult{Ride: ride, Method: "exact"}, nil
		}
	}

	normalized := normalizeRideName(snapshot.ExternalRideName)
	if normalized != "" {
		if ride, ok := cache.byName[normalized]; ok {
			metrics.RecordEntityResolution("ride", "alias")
			return &ResolveResult{Ride: ride, Method: "alias"}, nil
		}

		fuzzyRide, ratio, found, err := r.db.FuzzyFindRide(ctx, parkID, normalized, fuzzyMatchMinRatio)
		if err != nil {
			return nil, fmt.Errorf("fuzzy match ride in park %s: %w", parkID, err)
		}
		if found {
			logging.Info().Str("park_id", parkID).Str("ride_id", fuzzyRide.ID).
				Float64("ratio", ratio).Msg("resolved ride via fuzzy name match")
			metrics.RecordEntityResolution("ride", "fuzzy")
			return &ResolveResult{Ride: fuzzyRide, Method: "fuzzy"}, nil
		}
	}

	if !r.autoCreate {
		r.logMappingFailed(ctx, snapshot)
		return nil, ErrMappingFailed
	}

	name := snapshot.ExternalRideName
	if name == "" {
		name = snapshot.ExternalRideID
	}
	ride, err := r.db.CreateRide(ctx, parkID, snapshot.ExternalRideID, name, category)
	if err != nil {
		return nil, fmt.Errorf("auto-create ride %q in park %s: %w", name, parkID, err)
	}
	r.invalidate(parkID)
	metrics.RecordEntityResolution("ride", "created")
	return &ResolveResult{Ride: ride, Method: "created"}, nil
}

func (r *EntityResolver) logMappingFailed(ctx context.Context, snapshot models.UpstreamSnapshot) {
	issue := &models.DataQualityLog{
		IssueType:   models.IssueMappingFailed,
		EntityType:  "ride",
		ExternalID:  snapshot.ExternalRideID,
		Description: fmt.Sprintf("no ride matched external id %q / name %q and auto-create is disabled", snapshot.ExternalRideID, snapshot.ExternalRideName),
		Timestamp:   time.Now().UTC(),
	}
	if err := r.db.LogDataQualityIssue(ctx, issue); err != nil {
		logging.Error().Err(err).Msg("failed to record mapping-failed data quality issue")
	}
}

func (r *EntityResolver) cacheFor(ctx context.Context, parkID string) (*parkCache, error) {
	r.mu.Lock()
	if c, ok := r.caches[parkID]; ok {
		r.mu.Unlock()
		return c, nil
	}
	r.mu.Unlock()

	rides, err := r.db.GetRidesForPark(ctx, parkID)
	if err != nil {
		return nil, err
	}

	c := &parkCache{
		rides:      rides,
		byExternal: make(map[string]*models.Ride, len(rides)),
		byName:     make(map[string]*models.Ride, len(rides)),
	}
	for _, ride := range rides {
		for _, extID := range ride.ExternalIDs {
			c.byExternal[extID] = ride
		}
		c.byName[normalizeRideName(ride.Name)] = ride
	}

	r.mu.Lock()
	r.caches[parkID] = c
	r.mu.Unlock()
	return c, nil
}

// invalidate drops the cached index for a park, forcing the next Resolve
// call to reload it from the database. Called after an auto-create so a
// later record in the same cycle can match the ride just created.
func (r *EntityResolver) invalidate(parkID string) {
	r.mu.Lock()
	delete(r.caches, parkID)
	r.mu.Unlock()
}
