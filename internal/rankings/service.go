// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package rankings

import (
	"context"
	"fmt"
)

// Lifecycle matches *Materializer's Start/Stop pattern, the same adapter
// seam internal/aggregator.Service uses.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// Service wraps a Materializer as a suture.Service.
type Service struct {
	lifecycle Lifecycle
	name      string
}

// NewService creates a supervised wrapper around a Materializer.
func NewService(lifecycle Lifecycle) *Service {
	return &Service{lifecycle: lifecycle, name: "rankings"}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("rankings materializer start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.lifecycle.Stop(); err != nil {
		return fmt.Errorf("rankings materializer stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *Service) String() string {
	return s.name
}
