// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
Package sync implements the collection and classification pipeline: fetching
current ride state from two upstream sources, resolving external identifiers
to internal ride/park rows, classifying rides into reliability tiers, and
writing one snapshot batch per collection cycle.

# Pipeline

	Collector.RunCycle (one cycle)
	  -> UpstreamClient.FetchCurrent (per park, via CircuitBreakerClient + rate limiter)
	  -> EntityResolver.Resolve (external ID -> internal ride, auto-create if enabled)
	  -> RideClassifier.Classify (lazily, once per unclassified ride)
	  -> database.DB.WriteCycle (one transaction per cycle)

# Files

  - types.go: upstream payload shapes for both sources and their mapping to
    models.UpstreamSnapshot
  - client_a.go: source A adapter (park-grouped JSON, company ownership)
  - client_b.go: source B adapter (entity-level documents, gzip archive
    streaming for backfill)
  - retry.go: bounded exponential backoff around upstream HTTP calls
  - ratelimit.go: per-upstream token-bucket rate limiting
  - circuit_breaker.go: gobreaker wrapper shared by both upstream clients
  - normalize.go: ride-name normalization used by the resolver
  - resolver.go: three-step entity resolution with auto-create
  - classifier.go: four-step ride classification hierarchy
  - collector.go: per-cycle orchestration and snapshot derivation
  - errors.go: sentinel errors shared across the package

# Concurrency

A Collector cycle fetches all enabled parks concurrently, bounded by
config.CollectorConfig.WorkerPoolSize, but commits exactly one WriteCycle
transaction per cycle: a single park's transport failure never blocks or
partially-commits the rest of the batch (§4.4).

# Usage

	clientA := sync.NewCircuitBreakerClient(sync.NewClientA(&cfg.UpstreamA))
	clientB := sync.NewCircuitBreakerClient(sync.NewClientB(&cfg.UpstreamB))
	resolver := sync.NewEntityResolver(db, cfg.Collector.AutoCreateEntities)
	classifier, err := sync.NewRideClassifier(db, overridesPath, cachePath, nil)
	if err != nil {
	    logging.Fatal().Err(err).Msg("failed to load classification hierarchy")
	}
	collector := sync.NewCollector(&cfg.Collector, db, []sync.UpstreamClient{clientA, clientB}, resolver, classifier)
	if err := collector.RunCycle(ctx); err != nil {
	    logging.Error().Err(err).Msg("collection cycle failed")
	}
*/
package sync
