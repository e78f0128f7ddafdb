// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/parkwatch/internal/logging"
)

// retryConfig bounds the exponential backoff used around upstream HTTP
// calls (§4.1: "transport errors produce retryable failures, bounded
// exponential backoff, capped attempts, jittered").
type retryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxAttempts     int
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     15 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		MaxAttempts:     5,
	}
}

// withRetry runs fn with bounded exponential backoff and jitter, stopping
// early on ctx cancellation or once a non-retryable error is returned. The
// name parameter is used only for log context.
func withRetry(ctx context.Context, name string, cfg retryConfig, fn func() error) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.InitialInterval
	expBackoff.MaxInterval = cfg.MaxInterval
	expBackoff.MaxElapsedTime = cfg.MaxElapsedTime

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(cfg.MaxAttempts)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryableTransportError(err) {
			return backoff.Permanent(err)
		}
		logging.Warn().Str("call", name).Int("attempt", attempt).Err(err).Msg("retrying upstream call")
		return err
	}

	return backoff.Retry(op, policy)
}

// isRetryableTransportError reports whether err looks like a transient
// network failure worth retrying, as opposed to a schema or programmer
// error that retrying cannot fix.
func isRetryableTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrSchemaViolation) {
		return false
	}
	// Anything else reaching here came from an HTTP round-trip or decode
	// failure, both worth a retry within the caller's attempt budget.
	return true
}

// retryableStatusCode reports whether an HTTP response status warrants a
// retry (429 and 5xx), matching the upstream rate-limit/outage cases.
func retryableStatusCode(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
