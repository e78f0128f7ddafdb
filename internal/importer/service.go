// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package importer

import (
	"context"
	"time"

	"github.com/tomtom215/parkwatch/internal/logging"
)

// Service supervises the importer's startup resume pass: on Serve it looks
// for any destination left PAUSED or FAILED by a prior process and retries
// it once, then idles until the context is canceled. New import jobs are
// not scheduled by Service — they're triggered on demand by the admin HTTP
// surface or `cmd/server --import-once`, both of which call Runner.Import
// directly, same as cartographus's NewsletterSchedulerService idles between
// externally-triggered sends.
type Service struct {
	runner  *Runner
	targets map[string]Target
	name    string
}

// NewService wraps a Runner as a suture.Service. targets maps a
// destination ID to the Target metadata (park ID, park type) needed to
// resume it, since a bare checkpoint row doesn't carry the park mapping.
func NewService(runner *Runner, targets map[string]Target) *Service {
	return &Service{runner: runner, targets: targets, name: "importer"}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	s.resumeInterrupted(ctx)
	<-ctx.Done()
	return ctx.Err()
}

func (s *Service) resumeInterrupted(ctx context.Context) {
	checkpoints, err := s.runner.db.ListResumableImportCheckpoints(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list resumable import checkpoints at startup")
		return
	}

	for _, checkpoint := range checkpoints {
		target, ok := s.targets[checkpoint.DestinationID]
		if !ok {
			logging.Warn().Str("destination_id", checkpoint.DestinationID).
				Msg("resumable checkpoint has no configured target, skipping")
			continue
		}
		if checkpoint.EndDate == nil {
			logging.Warn().Str("destination_id", checkpoint.DestinationID).
				Msg("resumable checkpoint missing end_date, skipping")
			continue
		}

		start := time.Now().UTC().AddDate(0, 0, -1)
		if checkpoint.StartDate != nil {
			start = *checkpoint.StartDate
		}

		logging.Info().Str("destination_id", checkpoint.DestinationID).Str("status", string(checkpoint.Status)).
			Msg("resuming interrupted archive import")
		if err := s.runner.Import(ctx, target, start, *checkpoint.EndDate); err != nil {
			logging.Error().Err(err).Str("destination_id", checkpoint.DestinationID).
				Msg("resumed archive import failed again")
		}
	}
}

// String implements fmt.Stringer.
func (s *Service) String() string {
	return s.name
}
