// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/models"
)

// UpstreamClient is the uniform contract both source adapters satisfy (§4.1).
type UpstreamClient interface {
	Name() string
	ListParks(ctx context.Context) ([]ParkInfo, error)
	FetchCurrent(ctx context.Context, parkExternalID string) ([]models.UpstreamSnapshot, error)
}

// ClientA adapts source A: park-grouped JSON with company ownership
// metadata, used to derive is_disney/is_universal.
type ClientA struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *upstreamLimiter
	retry   retryConfig
}

// NewClientA builds a source-A client from configuration.
func NewClientA(cfg *config.UpstreamAConfig) *ClientA {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClientA{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: newUpstreamLimiter(defaultCollectorRate),
		retry:   defaultRetryConfig(),
	}
}

// Name identifies this client for logging and metrics labels.
func (c *ClientA) Name() string { return "source-a" }

// ListParks returns every park source A tracks, including company ownership
// used to derive Park.IsDisney/IsUniversal.
func (c *ClientA) ListParks(ctx context.Context) ([]ParkInfo, error) {
	var resp sourceAParksResponse
	if err := c.get(ctx, "/v1/parks", nil, &resp); err != nil {
		return nil, fmt.Errorf("list parks: %w", err)
	}

	parks := make([]ParkInfo, 0, len(resp.Parks))
	for _, p := range resp.Parks {
		isDisney, isUniversal := classifyCompany(p.Company)
		parks = append(parks, ParkInfo{
			ExternalID:  p.ID,
			Name:        p.Name,
			Timezone:    p.Timezone,
			IsDisney:    isDisney,
			IsUniversal: isUniversal,
		})
	}
	return parks, nil
}

// FetchCurrent returns the current ride state for one park, normalized into
// UpstreamSnapshot. Per-record schema violations are logged and skipped
// here rather than failing the whole park fetch.
func (c *ClientA) FetchCurrent(ctx context.Context, parkExternalID string) ([]models.UpstreamSnapshot, error) {
	var resp sourceAParksResponse
	params := url.Values{"park_id": []string{parkExternalID}}
	if err := c.get(ctx, "/v1/parks", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch current for park %s: %w", parkExternalID, err)
	}
	if len(resp.Parks) == 0 {
		return nil, fmt.Errorf("fetch current for park %s: %w", parkExternalID, ErrSchemaViolation)
	}

	park := resp.Parks[0]
	isDisney, isUniversal := classifyCompany(park.Company)

	var snapshots []models.UpstreamSnapshot
	for _, land := range park.Lands {
		for _, ride := range land.Rides {
			s, err := ride.toUpstreamSnapshot(parkExternalID, isDisney, isUniversal)
			if err != nil {
				logging.Warn().Str("source", c.Name()).Str("park", parkExternalID).Err(err).Msg("skipping malformed ride record")
				continue
			}
			snapshots = append(snapshots, s)
		}
	}
	return snapshots, nil
}

func (c *ClientA) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	return withRetry(ctx, c.Name()+path, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if retryableStatusCode(resp.StatusCode) {
			return fmt.Errorf("source A request to %s returned status %d", path, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: source A request to %s returned status %d", ErrSchemaViolation, path, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode source A response: %v", ErrSchemaViolation, err)
		}
		return nil
	})
}
