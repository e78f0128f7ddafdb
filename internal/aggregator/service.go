// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package aggregator

import (
	"context"
	"fmt"
)

// Lifecycle matches *Aggregator's Start/Stop pattern, letting Service adapt
// it to suture's Serve pattern without the aggregator knowing about suture.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// Service wraps an Aggregator as a suture.Service, the same adapter shape
// as the teacher's NewsletterSchedulerService wrapping its scheduler.
type Service struct {
	lifecycle Lifecycle
	name      string
}

// NewService creates a supervised wrapper around an Aggregator.
func NewService(lifecycle Lifecycle) *Service {
	return &Service{lifecycle: lifecycle, name: "aggregator"}
}

// Serve implements suture.Service: start the ticker loop, block until the
// context is canceled, then stop it gracefully.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("aggregator start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.lifecycle.Stop(); err != nil {
		return fmt.Errorf("aggregator stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it to label the service in
// its own logging.
func (s *Service) String() string {
	return s.name
}
