// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

/*
Package services provides suture.Service wrappers for parkwatch components.

This package adapts existing application components to the suture v4 supervision
model, translating the ListenAndServe lifecycle into suture's context-aware
Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (ListenAndServe to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

The domain services (internal/aggregator.Service, internal/rankings.Service,
internal/importer.Service) each provide their own suture.Service wrapper next
to their own package, following the same Start/Stop-to-Serve adapter shape
shown here, so this package doesn't need to import any of those packages.

# Usage Example

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/parkwatch/internal/supervisor"
	    "github.com/tomtom215/parkwatch/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    httpSvc := services.NewHTTPServerService(server, 30*time.Second)
	    tree.AddAPIService(httpSvc)

	    tree.Serve(ctx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Testing

Services can be tested with mock components:

	type MockServer struct {
	    stop chan struct{}
	}

	func (m *MockServer) ListenAndServe() error {
	    <-m.stop // Block until shutdown
	    return http.ErrServerClosed
	}

	func (m *MockServer) Shutdown(ctx context.Context) error {
	    close(m.stop)
	    return nil
	}

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
*/
package services
