// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/models"
)

// ArchiveRecord pairs one decoded archive entry with the day it was read
// from, so StreamArchive's caller can attribute records to a recorded_at
// window even when an entity's own LastUpdated field is missing.
type ArchiveRecord struct {
	Day      time.Time
	Snapshot models.UpstreamSnapshot
}

// ClientB adapts source B: entity-level JSON documents for current state,
// plus a historical per-day gzip archive addressed by destination UUID.
type ClientB struct {
	baseURL       string
	apiKey        string
	archiveBucket string
	http          *http.Client
	limiter       *upstreamLimiter
	retry         retryConfig
}

// NewClientB builds a source-B client from configuration.
func NewClientB(cfg *config.UpstreamBConfig) *ClientB {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClientB{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		archiveBucket: cfg.ArchiveBucket,
		http:          &http.Client{Timeout: timeout},
		limiter:       newUpstreamLimiter(defaultCollectorRate),
		retry:         defaultRetryConfig(),
	}
}

// Name identifies this client for logging and metrics labels.
func (c *ClientB) Name() string { return "source-b" }

// ListParks returns every destination source B tracks. Source B has no
// company-ownership metadata, so IsDisney/IsUniversal are always false;
// the entity resolver relies on source A (or a manual override) for those.
func (c *ClientB) ListParks(ctx context.Context) ([]ParkInfo, error) {
	var resp sourceBEntitiesResponse
	params := url.Values{"entityType": []string{"DESTINATION"}}
	if err := c.get(ctx, "/v1/entities", params, &resp); err != nil {
		return nil, fmt.Errorf("list parks: %w", err)
	}

	parks := make([]ParkInfo, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		parks = append(parks, ParkInfo{
			ExternalID: e.EntityID,
			Name:       e.Name,
		})
	}
	return parks, nil
}

// FetchCurrent returns the current ride state for one destination.
func (c *ClientB) FetchCurrent(ctx context.Context, parkExternalID string) ([]models.UpstreamSnapshot, error) {
	var resp sourceBEntitiesResponse
	params := url.Values{"parentId": []string{parkExternalID}}
	if err := c.get(ctx, "/v1/entities", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch current for park %s: %w", parkExternalID, err)
	}

	var snapshots []models.UpstreamSnapshot
	for _, e := range resp.Entities {
		s, err := e.toUpstreamSnapshot(models.DataSourceLive)
		if err != nil {
			logging.Warn().Str("source", c.Name()).Str("park", parkExternalID).Err(err).Msg("skipping malformed entity record")
			continue
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// StreamArchive walks destinationID's daily archive objects from start to
// end inclusive, decoding each gzip'd JSON document. A day with no object
// present is skipped silently (the archive is sparse by design); a day
// whose object exists but fails to decompress returns
// ErrArchiveDecompressFailed and stops the stream, since a corrupt archive
// file cannot be partially trusted. Malformed individual records within an
// otherwise-good file are skipped and logged, not fatal.
func (c *ClientB) StreamArchive(ctx context.Context, destinationID string, start, end time.Time) (<-chan ArchiveRecord, <-chan error) {
	records := make(chan ArchiveRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if err := ctx.Err(); err != nil {
				errs <- err
				return
			}

			body, ok, err := c.fetchArchiveObject(ctx, destinationID, day)
			if err != nil {
				errs <- fmt.Errorf("day %s: %w", day.Format("2006-01-02"), err)
				return
			}
			if !ok {
				continue
			}

			entities, err := decodeArchiveObject(body)
			if err != nil {
				errs <- fmt.Errorf("day %s: %w: %v", day.Format("2006-01-02"), ErrArchiveDecompressFailed, err)
				return
			}

			for _, e := range entities {
				s, err := e.toUpstreamSnapshot(models.DataSourceArchive)
				if err != nil {
					logging.Warn().Str("source", c.Name()).Str("destination", destinationID).
						Str("day", day.Format("2006-01-02")).Err(err).Msg("skipping malformed archive record")
					continue
				}
				select {
				case records <- ArchiveRecord{Day: day, Snapshot: s}:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return records, errs
}

func (c *ClientB) fetchArchiveObject(ctx context.Context, destinationID string, day time.Time) ([]byte, bool, error) {
	objectPath := ArchiveObjectPath(destinationID, day)
	reqURL := fmt.Sprintf("%s/archive/%s/%s", c.baseURL, c.archiveBucket, objectPath)

	var body []byte
	var found bool
	err := withRetry(ctx, "archive "+objectPath, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusNotFound {
			found = false
			return nil
		}
		if retryableStatusCode(resp.StatusCode) {
			return fmt.Errorf("archive request to %s returned status %d", objectPath, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: archive request to %s returned status %d", ErrSchemaViolation, objectPath, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read archive body: %w", err)
		}
		body = data
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return body, found, nil
}

// decodeArchiveObject gunzips raw and decodes its JSON, tolerating both the
// `{"events": [...]}` envelope and a bare JSON array (§4.1).
func decodeArchiveObject(raw []byte) ([]sourceBEntity, error) {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	decompressed, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	trimmed := bytes.TrimSpace(decompressed)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var entities []sourceBEntity
		if err := json.Unmarshal(trimmed, &entities); err != nil {
			return nil, fmt.Errorf("decode bare array: %w", err)
		}
		return entities, nil
	}

	var envelope sourceBArchiveEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return envelope.Events, nil
}

func (c *ClientB) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	return withRetry(ctx, c.Name()+path, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if retryableStatusCode(resp.StatusCode) {
			return fmt.Errorf("source B request to %s returned status %d", path, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: source B request to %s returned status %d", ErrSchemaViolation, path, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode source B response: %v", ErrSchemaViolation, err)
		}
		return nil
	})
}
