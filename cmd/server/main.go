// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the Bookmill server.
//
// Bookmill serves hybrid book recommendations: a content similarity signal
// and a collaborative filtering signal, blended per request, behind a
// two-tier cache.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layering env > config.yaml > defaults
//  2. Logging: zerolog, JSON or console
//  3. Model: load the trainer artifact and install the first snapshot
//  4. Cache: bounded Tier-1 plus Redis or embedded Badger Tier-2
//  5. Engine: the hybrid recommendation facade
//  6. Supervision: HTTP listener, model reload poller and cache warmer
//     under a suture tree
//
// # Configuration
//
// Environment variables use the BOOKMILL_ prefix, for example:
//
//	export BOOKMILL_MODEL_ARTIFACT_PATH=data/model.json
//	export BOOKMILL_CACHE_TIER2_BACKEND=badger
//	export BOOKMILL_CACHE_TIER1_POLICY=adaptive
//	./bookmill
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener drains
// in-flight requests, supervised services stop, and cache backends close.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/api"
	"github.com/bookmill/bookmill/internal/cache"
	"github.com/bookmill/bookmill/internal/cache/remote"
	"github.com/bookmill/bookmill/internal/catalog"
	"github.com/bookmill/bookmill/internal/config"
	"github.com/bookmill/bookmill/internal/logging"
	"github.com/bookmill/bookmill/internal/recommend"
	"github.com/bookmill/bookmill/internal/service"
)

func main() {
	if err := run(); err != nil {
		logger := logging.Logger()
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Model snapshot provider and the initial artifact load. A missing
	// artifact at boot is fatal; a bad artifact later only logs.
	provider := catalog.NewSnapshotProvider(logger)
	defer provider.Close()

	snap, err := catalog.LoadArtifact(cfg.Model.ArtifactPath)
	if err != nil {
		return fmt.Errorf("initial model load: %w", err)
	}
	provider.Install(snap)
	logger.Info().
		Str("version", snap.Version).
		Int("items", snap.ItemCount()).
		Msg("model loaded")

	// Two-tier cache.
	policy, err := cache.NewPolicy(cache.PolicyConfig{
		Kind:                 cfg.Cache.Tier1.Policy,
		AdaptiveWindow:       cfg.Cache.Tier1.AdaptiveWindow,
		AdaptiveSwitchMargin: cfg.Cache.Tier1.AdaptiveSwitchMargin,
	})
	if err != nil {
		return fmt.Errorf("cache policy: %w", err)
	}
	tier1 := cache.NewTier1(cfg.Cache.Tier1.Capacity, cfg.Cache.Tier1.TTL, policy)

	tier2, err := openTier2(ctx, cfg.Cache.Tier2, logger)
	if err != nil {
		return err
	}

	manager := cache.NewManager(tier1, tier2, cache.JSONCodec[*recommend.Result](), cache.ManagerConfig{
		Tier2TTL:                 cfg.Cache.Tier2.TTL,
		WarmConcurrency:          cfg.Cache.Warm.Concurrency,
		WarmTier2WritesPerSecond: cfg.Cache.Warm.Tier2WritesPerSecond,
	}, logger)
	defer manager.Close()

	// Recommendation engine and HTTP surface.
	engine, err := recommend.NewEngine(cfg.Recommend, provider, manager, logger)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	handler := api.NewHandler(engine, func() bool { return provider.Current() != nil }, logger)
	router := api.NewRouter(cfg.Server, handler, logger)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	// Supervision tree: model services and the API listener restart
	// independently.
	tree := service.NewTree(slog.New(slog.NewJSONHandler(os.Stderr, nil)), service.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddModelService(service.NewModelReloadService(cfg.Model.ArtifactPath, cfg.Model.ReloadInterval, provider, logger))
	tree.AddModelService(service.NewWarmService(provider, engine, logger))
	tree.AddAPIService(service.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logger.Info().Str("addr", cfg.Server.Addr).Msg("bookmill listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// openTier2 builds the configured Tier-2 store, or nil for tier-1-only
// operation.
func openTier2(ctx context.Context, cfg config.Tier2Config, logger zerolog.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := remote.NewRedisStore(ctx, remote.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
			OpTimeout:   cfg.Redis.OpTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("tier-2 redis: %w", err)
		}
		return store, nil

	case "badger":
		store, err := remote.NewBadgerStore(remote.BadgerConfig{
			Path:     cfg.Badger.Path,
			InMemory: cfg.Badger.InMemory,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("tier-2 badger: %w", err)
		}
		return store, nil

	case "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown tier-2 backend %q", cfg.Backend)
	}
}
