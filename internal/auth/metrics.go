// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package auth provides authentication functionality for JWT, Basic, and session-based login.
// ADR-0015: Zero Trust Authentication & Authorization
package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authentication Metrics
// ADR-0015: Zero Trust Authentication
// Production-grade observability for authentication operations.

var (
	// JWTLoginAttempts counts login attempts.
	// Labels:
	//   - provider: IdP identifier (e.g., "keycloak", "auth0", "okta")
	//   - outcome: "success", "failure", "error"
	JWTLoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"provider", "outcome"},
	)

	// JWTLoginDuration measures the duration of login flows.
	// This includes the time from callback receipt to session creation.
	JWTLoginDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "oidc_login_duration_seconds",
			Help: "Duration of login operations in seconds",
			// Optimized for auth latency: 10ms to 10s
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	// JWTTokenExchangeDuration measures the token exchange latency.
	JWTTokenExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oidc_token_exchange_duration_seconds",
			Help:    "Duration of token exchange operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	// AuthLogoutTotal counts logout operations.
	// Labels:
	//   - type: "rp_initiated" (user-initiated), "back_channel" (IdP-initiated)
	//   - outcome: "success", "failure"
	AuthLogoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_logout_total",
			Help: "Total number of logout operations",
		},
		[]string{"type", "outcome"},
	)

	// JWTTokenRefreshTotal counts token refresh attempts.
	JWTTokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_token_refresh_total",
			Help: "Total number of token refresh attempts",
		},
		[]string{"provider", "outcome"},
	)

	// JWTTokenRefreshDuration measures token refresh latency.
	JWTTokenRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oidc_token_refresh_duration_seconds",
			Help:    "Duration of token refresh operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	// AuthStateStoreOperations counts state store operations.
	// Labels:
	//   - operation: "store", "get", "delete", "cleanup"
	//   - outcome: "success", "failure", "not_found", "expired"
	AuthStateStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_state_store_operations_total",
			Help: "Total number of auth state store operations",
		},
		[]string{"operation", "outcome"},
	)

	// AuthStateStoreSize tracks the current number of active states.
	AuthStateStoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oidc_state_store_size",
			Help: "Current number of active auth states in the store",
		},
	)

	// JWKSFetchDuration measures JWKS fetch latency.
	JWKSFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oidc_jwks_fetch_duration_seconds",
			Help:    "Duration of JWKS fetch operations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"provider"},
	)

	// JWKSCacheHits counts JWKS cache hits.
	JWKSCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oidc_jwks_cache_hits_total",
			Help: "Total number of JWKS cache hits",
		},
	)

	// JWKSCacheMisses counts JWKS cache misses (requires fetch).
	JWKSCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oidc_jwks_cache_misses_total",
			Help: "Total number of JWKS cache misses",
		},
	)

	// AuthSessionsCreated counts sessions created.
	AuthSessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_sessions_created_total",
			Help: "Total number of sessions created via authenticated login",
		},
		[]string{"provider"},
	)

	// AuthSessionsTerminated counts sessions terminated.
	// Labels:
	//   - reason: "logout", "expired", "back_channel", "admin"
	AuthSessionsTerminated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_sessions_terminated_total",
			Help: "Total number of sessions terminated",
		},
		[]string{"reason"},
	)

	// AuthSessionRevoked counts back-channel logout operations.
	AuthSessionRevoked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_backchannel_logout_total",
			Help: "Total number of out-of-band session termination requests",
		},
		[]string{"outcome"}, // "success", "invalid_token", "validation_failed"
	)

	// TokenValidationErrors counts token validation errors by type.
	TokenValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oidc_validation_errors_total",
			Help: "Total number of token validation errors",
		},
		[]string{"error_type"}, // "expired", "invalid_signature", "invalid_issuer", "invalid_audience", "missing_claims"
	)

	// AuthActiveSessions tracks currently active authenticated sessions.
	AuthActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oidc_active_sessions",
			Help: "Current number of active authenticated sessions",
		},
	)
)

// RecordJWTLogin records a login attempt and its outcome.
func RecordJWTLogin(provider, outcome string, duration time.Duration) {
	JWTLoginAttempts.WithLabelValues(provider, outcome).Inc()
	if outcome == "success" {
		JWTLoginDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordJWTTokenExchange records a token exchange operation.
func RecordJWTTokenExchange(provider string, duration time.Duration) {
	JWTTokenExchangeDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAuthLogout records a logout operation.
func RecordAuthLogout(logoutType, outcome string) {
	AuthLogoutTotal.WithLabelValues(logoutType, outcome).Inc()
}

// RecordJWTTokenRefresh records a token refresh operation.
func RecordJWTTokenRefresh(provider, outcome string, duration time.Duration) {
	JWTTokenRefreshTotal.WithLabelValues(provider, outcome).Inc()
	if outcome == "success" {
		JWTTokenRefreshDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordAuthStateOperation records a state store operation.
func RecordAuthStateOperation(operation, outcome string) {
	AuthStateStoreOperations.WithLabelValues(operation, outcome).Inc()
}

// UpdateAuthStateStoreSize updates the state store size gauge.
func UpdateAuthStateStoreSize(size int) {
	AuthStateStoreSize.Set(float64(size))
}

// RecordJWKSFetch records a JWKS fetch operation.
func RecordJWKSFetch(provider string, duration time.Duration, cacheHit bool) {
	JWKSFetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if cacheHit {
		JWKSCacheHits.Inc()
	} else {
		JWKSCacheMisses.Inc()
	}
}

// RecordAuthSessionCreated records a new session creation.
func RecordAuthSessionCreated(provider string) {
	AuthSessionsCreated.WithLabelValues(provider).Inc()
	AuthActiveSessions.Inc()
}

// RecordAuthSessionTerminated records a session termination.
func RecordAuthSessionTerminated(reason string) {
	AuthSessionsTerminated.WithLabelValues(reason).Inc()
	AuthActiveSessions.Dec()
}

// RecordAuthSessionRevoked records a back-channel logout.
func RecordAuthSessionRevoked(outcome string) {
	AuthSessionRevoked.WithLabelValues(outcome).Inc()
}

// RecordTokenValidationError records a token validation error.
func RecordTokenValidationError(errorType string) {
	TokenValidationErrors.WithLabelValues(errorType).Inc()
}

// UpdateAuthActiveSessions sets the active session count.
func UpdateAuthActiveSessions(count int) {
	AuthActiveSessions.Set(float64(count))
}
