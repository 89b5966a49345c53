// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package main is the entry point for the ampwatch server.
//
// Ampwatch monitors a social media event stream for coordinated content
// sharing: multiple actors posting the same or near-identical content
// within narrow time windows. Each monitoring cycle fetches the latest
// event batch, groups events by content signature, bins each group into
// temporal windows, projects the actor-content relationships onto an
// actor-actor graph, filters edges by weight percentile and clusters the
// surviving graph into coordinated communities.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Actor pool: BadgerDB store of actors discovered across cycles
//  3. Content search: optional paced, circuit-broken lookup client
//  4. Detection engine: strategy, windowing, graph and clustering stages
//  5. Supervisor tree: monitor loop and HTTP server under suture
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): AMPWATCH_* environment variables, a config.yaml file,
// then built-in defaults. The only required setting is the ingest
// endpoint:
//
//	export AMPWATCH_INGEST_ENDPOINT=http://collector:9000/api/events
//	./ampwatch
//
// Selecting a strategy and enabling content search:
//
//	export AMPWATCH_ENGINE_STRATEGY=text
//	export AMPWATCH_SEARCH_ENABLED=true
//	export AMPWATCH_SEARCH_ENDPOINT=http://search:9100/api/search
//	./ampwatch
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the monitor
// loop finishes or abandons its current cycle, the HTTP server drains
// in-flight requests (10s timeout) and the actor pool is closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ampwatch/ampwatch/internal/actorpool"
	"github.com/ampwatch/ampwatch/internal/api"
	"github.com/ampwatch/ampwatch/internal/config"
	"github.com/ampwatch/ampwatch/internal/contentsearch"
	"github.com/ampwatch/ampwatch/internal/coordination"
	"github.com/ampwatch/ampwatch/internal/ingest"
	"github.com/ampwatch/ampwatch/internal/logging"
	"github.com/ampwatch/ampwatch/internal/report"
	"github.com/ampwatch/ampwatch/internal/supervisor"
	"github.com/ampwatch/ampwatch/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("strategy", cfg.Engine.Strategy).
		Dur("monitor_interval", cfg.Monitor.Interval).
		Msg("Starting ampwatch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Actor pool (BadgerDB, or in-memory when no path is configured).
	pool, err := actorpool.Open(cfg.ActorPool.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.ActorPool.Path).Msg("Failed to open actor pool")
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logging.Warn().Err(err).Msg("Actor pool close failed")
		}
	}()

	// Optional content-search collaborator for the text and ocr strategies.
	var searcher coordination.Searcher
	if cfg.Search.Enabled {
		inner := contentsearch.NewHTTPSearcher(cfg.Search.Endpoint, cfg.Search.Headers, cfg.Search.Timeout)
		searcher = contentsearch.NewClient(inner, contentsearch.Config{
			PacingInterval: cfg.Search.PacingInterval,
			Burst:          cfg.Search.Burst,
			Retry: contentsearch.RetryPolicy{
				MaxAttempts:    cfg.Search.RetryAttempts,
				InitialBackoff: cfg.Search.RetryBackoff,
				MaxBackoff:     contentsearch.DefaultRetryPolicy().MaxBackoff,
				Multiplier:     contentsearch.DefaultRetryPolicy().Multiplier,
			},
			BreakerName:      "content-search",
			FailureThreshold: cfg.Search.FailureThreshold,
			BreakerTimeout:   cfg.Search.BreakerTimeout,
		})
		logging.Info().Str("endpoint", cfg.Search.Endpoint).Msg("Content search enabled")
	}

	// Detection engine.
	engineCfg := coordination.Config{
		CoordinationInterval: cfg.Engine.CoordinationInterval,
		PercentileEdgeWeight: cfg.Engine.PercentileEdgeWeight,
		SimilarityThreshold:  cfg.Engine.SimilarityThreshold,
		MinDistinctActors:    cfg.Engine.MinDistinctActors,
		ClusterSeed:          cfg.Engine.ClusterSeed,
		SearchConcurrency:    cfg.Engine.SearchConcurrency,
	}
	strategy, err := coordination.NewStrategy(coordination.StrategyType(cfg.Engine.Strategy), engineCfg, searcher)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build matching strategy")
	}
	engine, err := coordination.NewEngine(engineCfg, strategy)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build detection engine")
	}

	// Event ingest and report sinks.
	supplier := ingest.NewHTTPSupplier(cfg.Ingest.Endpoint, cfg.Ingest.Headers, cfg.Ingest.Timeout)

	var notifiers []report.Notifier
	if cfg.Webhook.Enabled {
		notifiers = append(notifiers, report.NewWebhookNotifier(report.WebhookConfig{
			WebhookURL:  cfg.Webhook.URL,
			Headers:     cfg.Webhook.Headers,
			Enabled:     true,
			RateLimitMs: cfg.Webhook.RateLimitMs,
		}))
		logging.Info().Msg("Webhook notifier enabled")
	}

	// HTTP surface over the shared report state.
	state := api.NewState()
	router := api.NewRouter(state, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	// Supervisor tree: the monitor loop and HTTP server restart
	// independently on failure. The slog adapter bridges zerolog to
	// sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(services.NewMonitorService(supplier, engine, pool, state, notifiers, services.MonitorConfig{
		Interval:     cfg.Monitor.Interval,
		CycleTimeout: cfg.Monitor.CycleTimeout,
		Lookback:     cfg.Monitor.Lookback,
	}))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Signal handling for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
