// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Command server runs the parkwatch collector, aggregator, live-rankings
// materializer, archive importer, and HTTP API as one supervised process.
//
// Configuration is loaded from defaults, an optional YAML file
// (PARKWATCH_CONFIG_FILE, or ./parkwatch.yaml if present), and environment
// variables prefixed PARKWATCH_, in that order of increasing priority
// (internal/config.LoadWithKoanf).
//
// All long-running components sit under a three-layer suture supervisor
// tree (internal/supervisor): a data layer (collector, aggregator, rankings
// materializer), a messaging layer (archive importer), and an API layer
// (HTTP server). A crash anywhere in one layer doesn't take down the
// others, and suture restarts the failed service with exponential backoff.
//
// --import-once runs a single archive backfill pass for every configured
// import target and exits, instead of starting the supervised server. This
// is the path an operator or a cron job uses to seed history without
// running the full process.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/parkwatch/internal/aggregator"
	"github.com/tomtom215/parkwatch/internal/api"
	"github.com/tomtom215/parkwatch/internal/auth"
	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/importer"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/query"
	"github.com/tomtom215/parkwatch/internal/rankings"
	"github.com/tomtom215/parkwatch/internal/supervisor"
	"github.com/tomtom215/parkwatch/internal/supervisor/services"
	syncpkg "github.com/tomtom215/parkwatch/internal/sync"
	"github.com/tomtom215/parkwatch/internal/wal"
)

func main() {
	importOnce := flag.Bool("import-once", false, "run one archive backfill pass for every configured import target, then exit")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	walCfg := wal.LoadConfig()
	if cfg.Import.CheckpointDBPath != "" {
		walCfg.Path = cfg.Import.CheckpointDBPath
	}
	walStore, err := wal.Open(&walCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open import checkpoint store")
	}
	defer func() {
		if err := walStore.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing import checkpoint store")
		}
	}()

	targets, err := resolveImportTargets(context.Background(), db, cfg.Import.Targets)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to resolve import targets")
	}

	clientB := syncpkg.NewClientB(&cfg.UpstreamB)
	resolver := syncpkg.NewEntityResolver(db, cfg.Collector.AutoCreateEntities)
	runner := importer.NewRunner(cfg.Import, db, clientB, resolver, walStore)

	if *importOnce {
		runImportOnce(context.Background(), runner, targets)
		return
	}

	run(cfg, db, runner, resolver, targets)
}

// resolveImportTargets looks up the internal park row backing each
// configured archive destination, so the importer knows whether a
// destination maps to a Disney/Universal park for shame-list scoring.
func resolveImportTargets(ctx context.Context, db *database.DB, configured []config.ImportTargetConfig) (map[string]importer.Target, error) {
	targets := make(map[string]importer.Target, len(configured))
	for _, t := range configured {
		park, err := db.GetParkByID(ctx, t.ParkID)
		if err != nil {
			return nil, fmt.Errorf("resolve import target %s: %w", t.DestinationID, err)
		}
		targets[t.DestinationID] = importer.Target{
			DestinationID:           t.DestinationID,
			ParkID:                  park.ID,
			ParkIsDisneyOrUniversal: park.IsDisney || park.IsUniversal,
		}
	}
	return targets, nil
}

func runImportOnce(ctx context.Context, runner *importer.Runner, targets map[string]importer.Target) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	failed := 0
	for destinationID, target := range targets {
		logging.Info().Str("destination_id", destinationID).Msg("starting one-shot archive import")
		if err := runner.Import(ctx, target, start, end); err != nil {
			logging.Error().Err(err).Str("destination_id", destinationID).Msg("one-shot archive import failed")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func run(cfg *config.Config, db *database.DB, runner *importer.Runner, resolver *syncpkg.EntityResolver, targets map[string]importer.Target) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build supervisor tree")
	}

	classifier, err := syncpkg.NewRideClassifier(db, cfg.Collector.OverridesCSVPath, cfg.Collector.ClassifierCachePath, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build ride classifier")
	}

	var clients []syncpkg.UpstreamClient
	if cfg.UpstreamA.Enabled {
		clients = append(clients, syncpkg.NewCircuitBreakerClient(syncpkg.NewClientA(&cfg.UpstreamA)))
	}
	if cfg.UpstreamB.Enabled {
		clients = append(clients, syncpkg.NewCircuitBreakerClient(syncpkg.NewClientB(&cfg.UpstreamB)))
	}

	collector := syncpkg.NewCollector(&cfg.Collector, db, clients, resolver, classifier)
	collectorService := syncpkg.NewCollectorService(collector, cfg.Collector.SnapshotIntervalMinutes)
	tree.AddDataService(syncpkg.NewService(collectorService))

	agg := aggregator.New(db, cfg.Aggregator, cfg.Collector.SnapshotIntervalMinutes)
	tree.AddDataService(aggregator.NewService(agg))

	materializer := rankings.New(db, cfg.Rankings, cfg.Query.LiveWindowHours)
	tree.AddDataService(rankings.NewService(materializer))

	tree.AddMessagingService(importer.NewService(runner, targets))
	importMgr := importer.NewManager(runner, db, targets)

	authMW, err := buildAuthMiddleware(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build authentication middleware")
	}

	queries := query.NewService(db, cfg.Query, cfg.Collector.SnapshotIntervalMinutes)

	router := api.NewRouter(api.RouterConfig{
		DB:        db,
		Queries:   queries,
		ImportMgr: importMgr,
		Auth:      authMW,
		ChiMW:     api.NewChiMiddlewareFromAuth(cfg.Security.CORSOrigins, cfg.Security.RateLimitPerMin, time.Minute, cfg.Security.RateLimitDisabled),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("parkwatch starting")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("supervisor tree exited with error")
		}
	}

	for err := range errCh {
		if err != nil {
			logging.Error().Err(err).Msg("error during shutdown")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err != nil {
		logging.Warn().Err(err).Int("unstopped_services", len(report)).Msg("some services did not stop cleanly")
	}

	logging.Info().Msg("parkwatch stopped gracefully")
}

// buildAuthMiddleware assembles the admin-surface authenticator selected by
// cfg.AuthMode. "none" is accepted for local development only; it is logged
// loudly because it leaves /admin unauthenticated.
func buildAuthMiddleware(cfg *config.SecurityConfig) (*auth.MiddlewareV2, error) {
	mode := auth.AuthMode(cfg.AuthMode)

	mwCfg := &auth.MiddlewareV2Config{
		AuthMode:               mode,
		BasicAuthDefaultRole:   "viewer",
		BasicAuthAdminUsername: cfg.BasicAuthUsername,
		ReqsPerWindow:          cfg.RateLimitPerMin,
		Window:                 time.Minute,
		RateLimitDisabled:      cfg.RateLimitDisabled,
		CORSOrigins:            cfg.CORSOrigins,
		TrustedProxies:         cfg.TrustedProxies,
	}

	switch mode {
	case auth.AuthModeNone:
		logging.Warn().Msg("security.auth_mode=none: the admin import surface is unauthenticated, do not use in production")
	case auth.AuthModeJWT, auth.AuthModeMulti:
		jwtManager, err := auth.NewJWTManager(cfg)
		if err != nil {
			return nil, fmt.Errorf("build JWT manager: %w", err)
		}
		mwCfg.JWTManager = jwtManager
		fallthrough
	case auth.AuthModeBasic:
		if cfg.BasicAuthUsername != "" {
			basicManager, err := auth.NewBasicAuthManager(cfg.BasicAuthUsername, cfg.BasicAuthPassword)
			if err != nil {
				return nil, fmt.Errorf("build basic auth manager: %w", err)
			}
			mwCfg.BasicAuthManager = basicManager
		}
	}

	if len(mwCfg.CORSOrigins) == 1 && mwCfg.CORSOrigins[0] == "*" {
		logging.Warn().Msg("security.cors_origins=* allows any origin to call the API; restrict this in production")
	}

	return auth.NewMiddlewareV2(mwCfg)
}
