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

	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
	"github.com/tomtom215/parkwatch/internal/models"
)

// Collector runs one collection cycle across every tracked park: fetch
// current state from whichever upstream owns that park, resolve entities,
// classify unrecognized rides, derive per-ride/per-park aggregates, and
// persist the whole cycle in a single transaction (§4.4).
type Collector struct {
	db         *database.DB
	clients    []UpstreamClient
	resolver   *EntityResolver
	classifier *RideClassifier

	workerPoolSize         int
	openHeuristicThreshold float64
	perParkBudget          time.Duration
}

// NewCollector builds a Collector from configuration and the components it
// orchestrates. clients should already be wrapped with
// NewCircuitBreakerClient by the caller.
func NewCollector(cfg *config.CollectorConfig, db *database.DB, clients []UpstreamClient, resolver *EntityResolver, classifier *RideClassifier) *Collector {
	workers := cfg.WorkerPoolSize
	if workers <= 0 {
		workers = 4
	}
	threshold := cfg.OpenHeuristicThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Collector{
		db:                     db,
		clients:                clients,
		resolver:               resolver,
		classifier:             classifier,
		workerPoolSize:         workers,
		openHeuristicThreshold: threshold,
		perParkBudget:          defaultPerParkTimeout,
	}
}

// parkResult is what one worker produces for one park.
type parkResult struct {
	park          *models.Park
	rideSnapshots []*models.RideStatusSnapshot
	parkSnapshot  *models.ParkActivitySnapshot
	err           error
}

// RunCycle fetches current state for every active park, concurrently
// bounded by the collector's worker pool, and writes the whole cycle to the
// database in one transaction. A single park's fetch/resolve failure is
// logged and excluded from the cycle rather than failing the whole run.
func (c *Collector) RunCycle(ctx context.Context) error {
	start := time.Now()
	recordedAt := start.UTC()

	parks, err := c.db.GetActiveParks(ctx)
	if err != nil {
		return fmt.Errorf("load active parks: %w", err)
	}

	jobs := make(chan *models.Park)
	results := make(chan parkResult, len(parks))

	var wg sync.WaitGroup
	for i := 0; i < c.workerPoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for park := range jobs {
				results <- c.collectPark(ctx, park, recordedAt)
			}
		}()
	}

	go func() {
		for _, p := range parks {
			jobs <- p
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var rideSnapshots []*models.RideStatusSnapshot
	var parkSnapshots []*models.ParkActivitySnapshot
	var failures int
	for res := range results {
		if res.err != nil {
			failures++
			logging.Warn().Str("park_id", res.park.ID).Err(res.err).Msg("park collection failed, excluding from cycle")
			continue
		}
		rideSnapshots = append(rideSnapshots, res.rideSnapshots...)
		parkSnapshots = append(parkSnapshots, res.parkSnapshot)
	}

	if len(parkSnapshots) == 0 && len(parks) > 0 {
		err := fmt.Errorf("all %d parks failed collection this cycle", len(parks))
		metrics.RecordCollectorCycle("all", time.Since(start), 0, err)
		return err
	}

	if err := c.db.WriteCycle(ctx, rideSnapshots, parkSnapshots); err != nil {
		metrics.RecordCollectorCycle("all", time.Since(start), 0, err)
		return fmt.Errorf("write cycle: %w", err)
	}

	logging.Info().Int("parks_ok", len(parkSnapshots)).Int("parks_failed", failures).
		Int("ride_snapshots", len(rideSnapshots)).Dur("duration", time.Since(start)).Msg("collection cycle complete")
	metrics.RecordCollectorCycle("all", time.Since(start), len(rideSnapshots), nil)
	return nil
}

func (c *Collector) collectPark(ctx context.Context, park *models.Park, recordedAt time.Time) parkResult {
	ctx, cancel := context.WithTimeout(ctx, c.perParkBudget)
	defer cancel()

	client, externalID, ok := c.clientFor(park)
	if !ok {
		return parkResult{park: park, err: fmt.Errorf("no upstream owns park %s: %w", park.ID, ErrUpstreamDisabled)}
	}

	upstream, err := client.FetchCurrent(ctx, externalID)
	if err != nil {
		return parkResult{park: park, err: fmt.Errorf("fetch current: %w", err)}
	}

	rideSnapshots := make([]*models.RideStatusSnapshot, 0, len(upstream))
	tierWeights := make(map[string]int, len(upstream))
	anyOpenHint := false
	for _, snap := range upstream {
		if snap.ParkOpenHint != nil && *snap.ParkOpenHint {
			anyOpenHint = true
		}

		result, err := c.resolver.Resolve(ctx, park.ID, snap, models.RideCategoryAttraction)
		if err != nil {
			logging.Warn().Str("park_id", park.ID).Str("external_ride_id", snap.ExternalRideID).Err(err).Msg("dropping unresolved ride record")
			continue
		}

		if result.Method == "created" {
			if _, err := c.classifier.Classify(ctx, park.ID, park.Name, result.Ride); err != nil {
				logging.Warn().Str("ride_id", result.Ride.ID).Err(err).Msg("classification failed for newly created ride, defaulting to tier 2")
			}
		}
		tierWeights[result.Ride.ID] = models.TierWeight(result.Ride.Tier)

		computedIsOpen := DeriveComputedIsOpen(snap, park.IsDisneyOrUniversal())
		rideSnapshots = append(rideSnapshots, &models.RideStatusSnapshot{
			RideID:         result.Ride.ID,
			ParkID:         park.ID,
			RecordedAt:     recordedAt,
			Status:         snap.Status,
			ComputedIsOpen: computedIsOpen,
			WaitTimeMin:    snap.WaitTimeMinutes,
			DataSource:     snap.DataSource,
		})
	}

	parkSnapshot := c.aggregatePark(park, rideSnapshots, tierWeights, recordedAt, anyOpenHint)
	return parkResult{park: park, rideSnapshots: rideSnapshots, parkSnapshot: parkSnapshot}
}

// clientFor picks the upstream client that owns park. Park.ExternalIDs is
// positional: index i holds the ID the i-th entry of c.clients recognizes,
// empty string if that upstream doesn't track this park at all. A park
// tracked by only one upstream simply has a shorter ExternalIDs slice.
func (c *Collector) clientFor(park *models.Park) (UpstreamClient, string, bool) {
	for i, client := range c.clients {
		if i >= len(park.ExternalIDs) {
			break
		}
		if extID := park.ExternalIDs[i]; extID != "" {
			return client, extID, true
		}
	}
	return nil, "", false
}

// DeriveComputedIsOpen applies §4.4's rule: OPERATING -> true, {DOWN,
// CLOSED, REFURBISHMENT} -> false, null status -> the inverse of the
// park-type down heuristic (Disney/Universal rides default closed when
// unreported; other parks default open).
func DeriveComputedIsOpen(snap models.UpstreamSnapshot, isDisneyOrUniversal bool) bool {
	switch snap.Status {
	case models.StatusOperating:
		return true
	case models.StatusDown, models.StatusClosed, models.StatusRefurbishment:
		return false
	default:
		return !isDisneyOrUniversal
	}
}

// aggregatePark computes the per-park ParkActivitySnapshot fields from the
// ride snapshots just collected for it (§4.4).
func (c *Collector) aggregatePark(park *models.Park, rides []*models.RideStatusSnapshot, tierWeights map[string]int, recordedAt time.Time, anyOpenHint bool) *models.ParkActivitySnapshot {
	return AggregatePark(park, rides, tierWeights, recordedAt, anyOpenHint, c.openHeuristicThreshold)
}

// AggregatePark computes the per-park ParkActivitySnapshot fields from a set
// of ride snapshots recorded for it at the same instant (§4.4). Exported so
// the archive importer can build the same park-level rollups for historical
// batches that the live collector builds for the current cycle.
func AggregatePark(park *models.Park, rides []*models.RideStatusSnapshot, tierWeights map[string]int, recordedAt time.Time, anyOpenHint bool, openHeuristicThreshold float64) *models.ParkActivitySnapshot {
	snapshot := &models.ParkActivitySnapshot{
		ParkID:       park.ID,
		RecordedAt:   recordedAt,
		RidesTracked: len(rides),
	}

	var waitSum, waitCount int
	var maxWait int
	haveMaxWait := false

	for _, r := range rides {
		if r.ComputedIsOpen {
			snapshot.RidesOpen++
			if r.WaitTimeMin != nil {
				waitSum += *r.WaitTimeMin
				waitCount++
				if !haveMaxWait || *r.WaitTimeMin > maxWait {
					maxWait = *r.WaitTimeMin
					haveMaxWait = true
				}
			}
		} else {
			snapshot.RidesClosed++
		}
	}

	if waitCount > 0 {
		avg := float64(waitSum) / float64(waitCount)
		snapshot.AvgWaitMinutes = &avg
	}
	if haveMaxWait {
		snapshot.MaxWaitMinutes = &maxWait
	}

	openFraction := 0.0
	if snapshot.RidesTracked > 0 {
		openFraction = float64(snapshot.RidesOpen) / float64(snapshot.RidesTracked)
	}
	snapshot.ParkAppearsOpen = openFraction >= openHeuristicThreshold || anyOpenHint

	if snapshot.ParkAppearsOpen {
		shameScore := ComputeShameScore(rides, tierWeights, park.IsDisneyOrUniversal())
		snapshot.ShameScore = &shameScore
	}

	return snapshot
}

// ComputeShameScore implements `clamp(10 * weighted_down_ratio, 0, 10)`
// where weighted_down_ratio = sum(tier_weight where down) / sum(tier_weight
// of active) (§4.4). A ride missing from tierWeights (shouldn't happen,
// every resolved ride is recorded) falls back to the tier-2 default weight.
func ComputeShameScore(rides []*models.RideStatusSnapshot, tierWeights map[string]int, parkIsDisneyOrUniversal bool) float64 {
	var downWeight, totalWeight int
	for _, r := range rides {
		weight, ok := tierWeights[r.RideID]
		if !ok {
			weight = models.TierWeights[models.DefaultTier]
		}
		totalWeight += weight
		if r.IsDown(parkIsDisneyOrUniversal) {
			downWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	ratio := float64(downWeight) / float64(totalWeight)
	return models.ClampShameScore(10 * ratio)
}
