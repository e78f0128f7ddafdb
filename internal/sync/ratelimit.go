// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// upstreamLimiter wraps a token-bucket limiter per upstream client. Each
// client waits on it inside its retry loop, once per HTTP attempt, so it
// sits beneath the CircuitBreakerClient that wraps the client.
type upstreamLimiter struct {
	limiter *rate.Limiter
}

// newUpstreamLimiter allows requestsPerSecond sustained with a burst of the
// same size, generous enough for one collection cycle's worth of
// per-park fetches without hammering the upstream between cycles.
func newUpstreamLimiter(requestsPerSecond float64) *upstreamLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &upstreamLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *upstreamLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// defaultCollectorRate is the requests-per-second rate each upstream client
// builds its own limiter with; the two clients do not share one budget.
const defaultCollectorRate = 8.0

// defaultPerParkTimeout bounds one park's whole collectPark pipeline
// (fetch, resolve, classify). The collector does not read
// config.UpstreamAConfig.ParkBudget or config.UpstreamBConfig.ParkBudget.
const defaultPerParkTimeout = 30 * time.Second
