// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
	"github.com/tomtom215/parkwatch/internal/models"
)

// CircuitBreakerClient wraps an UpstreamClient so a misbehaving upstream
// stops receiving traffic instead of stalling every collector worker on
// slow timeouts (§5: upstream isolation).
//
// Configuration mirrors the teacher's Tautulli wrapper: 3 concurrent probes
// while half-open, failure counts reset every minute while closed, two
// minutes before the first recovery probe, and a trip threshold tuned for
// statistical significance rather than single-request flukes.
type CircuitBreakerClient struct {
	client UpstreamClient
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps client, using client.Name() both as the
// gobreaker circuit name and the metrics label.
func NewCircuitBreakerClient(client UpstreamClient) *CircuitBreakerClient {
	name := client.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("upstream", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).Msg("circuit breaker opening")
			}
			return shouldTrip
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("upstream", breakerName).Str("from", fromStr).Str("to", toStr).Msg("circuit breaker state transition")
			metrics.RecordCircuitBreakerTransition(breakerName, fromStr, toStr)
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name}
}

// Name returns the wrapped client's name, satisfying UpstreamClient.
func (c *CircuitBreakerClient) Name() string { return c.name }

// ListParks wraps UpstreamClient.ListParks with circuit breaker protection.
func (c *CircuitBreakerClient) ListParks(ctx context.Context) ([]ParkInfo, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.client.ListParks(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]ParkInfo), nil
}

// FetchCurrent wraps UpstreamClient.FetchCurrent with circuit breaker protection.
func (c *CircuitBreakerClient) FetchCurrent(ctx context.Context, parkExternalID string) ([]models.UpstreamSnapshot, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.client.FetchCurrent(ctx, parkExternalID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.UpstreamSnapshot), nil
}

func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		logging.Warn().Str("upstream", c.name).Err(err).Msg("circuit breaker call failed")
		return nil, err
	}
	return result, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
