// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package main is the entry point for the Blockfeed server.
//
// Blockfeed serves personalized item recommendations for community blocks.
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, BLOCKFEED_* env vars (Koanf v2)
//  2. Database: embedded DuckDB with optional CSV seed data
//  3. Encoder: remote embedding API (circuit-breaker protected) or local hashing
//  4. Models: embedding index, collaborative similarity, decayed popularity
//  5. Scheduler: periodic model rebuilds (cron)
//  6. HTTP server: REST API plus Prometheus metrics
//
// The first model build runs in the background; recommendation endpoints
// return 503 until it completes. Shutdown on SIGINT/SIGTERM drains in-flight
// requests, stops the scheduler, and closes the database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/api"
	"github.com/tomtom215/blockfeed/internal/config"
	"github.com/tomtom215/blockfeed/internal/database"
	"github.com/tomtom215/blockfeed/internal/embedding"
	"github.com/tomtom215/blockfeed/internal/logging"
	"github.com/tomtom215/blockfeed/internal/recommend"
	"github.com/tomtom215/blockfeed/internal/scheduler"
)

// version is set at build time via -ldflags.
var version = "dev"

const rebuildJob = "model-rebuild"

// rebuilder couples model rebuilds with response-cache invalidation, so a
// fresh model is never served through stale cached feeds.
type rebuilder struct {
	models  *recommend.Models
	service *recommend.Service
}

func (r *rebuilder) Rebuild(ctx context.Context) error {
	err := r.models.Rebuild(ctx)
	r.service.InvalidateCache()
	return err
}

func (r *rebuilder) Ready() bool {
	return r.models.Ready()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Config errors happen before logging is configured.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)
	logging.Info().Str("version", version).Msg("Starting Blockfeed")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("encoder", cfg.Encoder.Provider).
		Str("rebuild_spec", cfg.Scheduler.Spec).
		Msg("Configuration loaded")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.Logger()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	encoder, err := newEncoder(cfg.Encoder, logger)
	if err != nil {
		return fmt.Errorf("initialize encoder: %w", err)
	}

	models := recommend.NewModels(&cfg.Recommend, encoder, db, logger)
	service := recommend.NewService(&cfg.Recommend, db, models, logger)
	reb := &rebuilder{models: models, service: service}

	// First build in the background; endpoints serve 503 until it lands.
	go func() {
		if err := reb.Rebuild(ctx); err != nil {
			logging.Warn().Err(err).Msg("Initial model build completed with errors")
			return
		}
		logging.Info().Msg("Initial model build complete")
	}()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(logger)
		if err := sched.AddJob(rebuildJob, cfg.Scheduler.Spec, reb.Rebuild); err != nil {
			return fmt.Errorf("schedule rebuilds: %w", err)
		}
		sched.Start()
	}

	handlers := api.NewHandlers(service, reb, db, version)
	router := api.NewRouter(api.RouterConfig{
		RateLimit:   cfg.Server.RateLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if sched != nil {
		// Wait for any running rebuild to finish before closing the DB.
		<-sched.Stop().Done()
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}

func newEncoder(cfg config.EncoderConfig, logger zerolog.Logger) (recommend.Encoder, error) {
	switch cfg.Provider {
	case "api":
		return embedding.NewClient(cfg.API, logger)
	case "hashing":
		return embedding.NewHashingEncoder(cfg.Dim), nil
	default:
		return nil, fmt.Errorf("unknown encoder provider %q", cfg.Provider)
	}
}
