// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package importer

import (
	"context"

	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/models"
	"github.com/tomtom215/parkwatch/internal/sync"
)

// dayBatcher groups archive records sharing the same upstream timestamp
// into ride/park snapshot pairs, exactly as the live collector groups one
// cycle's fetch results, so a historical batch written by the importer is
// indistinguishable from one written live at that instant.
type dayBatcher struct {
	target   Target
	resolver *sync.EntityResolver

	byTimestamp map[int64]*timestampGroup
	order       []int64
}

type timestampGroup struct {
	rideSnapshots []*models.RideStatusSnapshot
	tierWeights   map[string]int
	anyOpenHint   bool
}

func newDayBatcher(target Target, resolver *sync.EntityResolver) *dayBatcher {
	return &dayBatcher{
		target:      target,
		resolver:    resolver,
		byTimestamp: make(map[int64]*timestampGroup),
	}
}

// add resolves one archive record's ride and appends it to the group for
// its exact timestamp. A resolution failure is logged by Resolve itself
// (MAPPING_FAILED) and the record is dropped, matching the collector's
// drop-and-continue behavior.
func (b *dayBatcher) add(ctx context.Context, rec sync.ArchiveRecord) {
	snap := rec.Snapshot
	result, err := b.resolver.Resolve(ctx, b.target.ParkID, snap, models.RideCategoryAttraction)
	if err != nil {
		logging.Warn().Str("park_id", b.target.ParkID).Str("external_ride_id", snap.ExternalRideID).
			Err(err).Msg("dropping unresolved archive record")
		return
	}

	key := snap.Timestamp.Unix()
	group, ok := b.byTimestamp[key]
	if !ok {
		group = &timestampGroup{tierWeights: make(map[string]int)}
		b.byTimestamp[key] = group
		b.order = append(b.order, key)
	}

	if snap.ParkOpenHint != nil && *snap.ParkOpenHint {
		group.anyOpenHint = true
	}
	group.tierWeights[result.Ride.ID] = models.TierWeight(result.Ride.Tier)
	group.rideSnapshots = append(group.rideSnapshots, &models.RideStatusSnapshot{
		RideID:         result.Ride.ID,
		ParkID:         b.target.ParkID,
		RecordedAt:     snap.Timestamp,
		Status:         snap.Status,
		ComputedIsOpen: sync.DeriveComputedIsOpen(snap, b.target.ParkIsDisneyOrUniversal),
		WaitTimeMin:    snap.WaitTimeMinutes,
		DataSource:     snap.DataSource,
	})
}

func (b *dayBatcher) count() int {
	n := 0
	for _, g := range b.byTimestamp {
		n += len(g.rideSnapshots)
	}
	return n
}

// drain returns every ride/park snapshot accumulated so far, grouped back
// into one ParkActivitySnapshot per distinct timestamp, and resets the
// batcher for the next batch.
func (b *dayBatcher) drain() ([]*models.RideStatusSnapshot, []*models.ParkActivitySnapshot) {
	park := &models.Park{ID: b.target.ParkID, IsDisney: false, IsUniversal: false}
	if b.target.ParkIsDisneyOrUniversal {
		park.IsDisney = true
	}

	var rideSnapshots []*models.RideStatusSnapshot
	var parkSnapshots []*models.ParkActivitySnapshot
	for _, key := range b.order {
		group := b.byTimestamp[key]
		rideSnapshots = append(rideSnapshots, group.rideSnapshots...)
		recordedAt := group.rideSnapshots[0].RecordedAt
		parkSnapshot := sync.AggregatePark(park, group.rideSnapshots, group.tierWeights, recordedAt, group.anyOpenHint, defaultOpenHeuristicThreshold)
		parkSnapshots = append(parkSnapshots, parkSnapshot)
	}

	b.byTimestamp = make(map[int64]*timestampGroup)
	b.order = nil
	return rideSnapshots, parkSnapshots
}

// defaultOpenHeuristicThreshold mirrors the collector's default
// (config.CollectorConfig.OpenHeuristicThreshold); the importer has no
// access to that per-cycle config and archive data carries no per-run
// override, so it applies the same default the collector falls back to.
const defaultOpenHeuristicThreshold = 0.5
