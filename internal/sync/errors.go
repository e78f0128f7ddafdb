// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import "errors"

var (
	// ErrMappingFailed is returned by the entity resolver when no ride
	// matches an upstream record and auto-create is disabled (§4.2).
	ErrMappingFailed = errors.New("sync: entity mapping failed")

	// ErrSchemaViolation marks an upstream record recoverable per-record,
	// logged to DataQualityLog and skipped rather than failing the cycle (§4.1).
	ErrSchemaViolation = errors.New("sync: upstream record violates expected schema")

	// ErrArchiveDecompressFailed marks a whole archive file as unreadable,
	// unlike ErrSchemaViolation which only drops one record (§4.1).
	ErrArchiveDecompressFailed = errors.New("sync: archive file failed to decompress")

	// ErrNoClassification is returned by RideClassifier when every step in
	// the hierarchy, including the AI boundary, produced no result.
	ErrNoClassification = errors.New("sync: no classification step produced a result")

	// ErrUpstreamDisabled is returned by the collector when asked to poll an
	// upstream that config has disabled.
	ErrUpstreamDisabled = errors.New("sync: upstream source is disabled")
)
