// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

// Package main is the entry point for the SpendSense server.
//
// SpendSense turns computed financial signals into explainable,
// guardrailed education recommendations. The server initializes
// components in order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Storage: BadgerDB store for users, signals, and recommendations
//  3. Personas: declarative rule config compiled into the classifier
//  4. Catalog: content catalog loaded and validated, with fallback
//  5. Engine: scoring, rationale synthesis, and guardrails wiring
//  6. Supervisor tree: HTTP server, Badger GC, optional batch scheduler
//
// The server handles graceful shutdown on SIGINT and SIGTERM: new
// connections stop, in-flight requests drain, and the store closes.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spendsense/spendsense/internal/api"
	"github.com/spendsense/spendsense/internal/catalog"
	"github.com/spendsense/spendsense/internal/config"
	"github.com/spendsense/spendsense/internal/guardrails"
	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/recommend"
	"github.com/spendsense/spendsense/internal/storage"
	"github.com/spendsense/spendsense/internal/supervisor"
	"github.com/spendsense/spendsense/internal/supervisor/services"
)

func main() {
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
		Str("storage_path", cfg.Storage.Path).
		Bool("in_memory", cfg.Storage.InMemory).
		Bool("batch_enabled", cfg.Batch.Enabled).
		Msg("Starting SpendSense")

	// Storage
	var store *storage.Store
	if cfg.Storage.InMemory {
		store, err = storage.OpenInMemory(logging.Logger())
	} else {
		store, err = storage.Open(cfg.Storage.Path, logging.Logger())
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	// Persona rules. A missing or broken config file falls back to the
	// built-in persona set inside LoadConfig.
	personaCfg := persona.LoadConfig(cfg.Personas.ConfigPath)
	classifier, err := persona.NewClassifier(personaCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to compile persona rules")
	}
	logging.Info().Str("tie_break", string(classifier.TieBreakMode())).Msg("Persona classifier ready")

	// Content catalog. Load degrades to the built-in fallback catalog on
	// any failure, so the pipeline always has something to recommend.
	knownPersonas := make([]string, 0, len(personaCfg.Personas))
	for id := range personaCfg.Personas {
		knownPersonas = append(knownPersonas, id)
	}
	cat := catalog.Load(cfg.Catalog.Path, knownPersonas)
	logging.Info().Int("items", len(cat.Items)).Str("version", cat.Version).Msg("Content catalog ready")

	// Guardrails and recommendation engine
	guards := guardrails.New(store, cfg.Guardrails.DailyCap)
	engine := recommend.NewEngine(cat, classifier, guards, store, recommend.Options{
		MaxRecommendations: cfg.Recommend.MaxRecommendations,
		ExcludeRecentDays:  cfg.Recommend.ExcludeRecentDays,
	})

	// HTTP surface
	handler := api.NewHandler(store, engine, guards, classifier, cfg.Recommend.Window)
	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor tree, logging through the zerolog-backed slog adapter.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if !cfg.Storage.InMemory {
		tree.AddDataService(services.NewStorageGCService(store, cfg.Storage.GCInterval, cfg.Storage.GCDiscardRatio))
		logging.Info().Dur("interval", cfg.Storage.GCInterval).Msg("Badger GC service added")
	}
	if cfg.Batch.Enabled {
		tree.AddPipelineService(services.NewBatchService(engine, store, cfg.Recommend.Window, cfg.Batch.Interval))
		logging.Info().Dur("interval", cfg.Batch.Interval).Msg("Batch regeneration service added")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

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
