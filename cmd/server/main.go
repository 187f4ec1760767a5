// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package main is the entry point for the Shillscope server.
//
// Shillscope is a self-hosted lab for studying shilling attacks on
// collaborative-filtering recommenders. It loads a MovieLens-style
// ratings dataset, injects a configurable push attack against one
// target item, applies a statistical clipping defense, and serves the
// three resulting recommendation views (baseline, attack, defense)
// side by side over a REST API.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered load (defaults, YAML file, env)
//  2. Dataset: ratings file and optional item titles file
//  3. Attack target: configured item, or auto-picked popular item
//  4. Scenario orchestrator: baseline engine now, derived stores lazily
//  5. Posters: TMDB client with Badger or in-memory cache (optional)
//  6. HTTP server under a suture supervision tree
//
// # Configuration
//
// Highest priority wins: environment variables, then config.yaml,
// then built-in defaults. The dataset files default to data/u.data
// and data/u.item (MovieLens 100K layout).
//
// Poster artwork needs a TMDB API key:
//
//	export TMDB_API_KEY=your-key
//	export TMDB_CACHE_PATH=data/posters  # optional persistence
//	./shillscope
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting connections, in-flight requests get the configured
// timeout to finish, then the supervision tree unwinds.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/shillscope/internal/api"
	"github.com/tomtom215/shillscope/internal/attack"
	"github.com/tomtom215/shillscope/internal/catalog"
	"github.com/tomtom215/shillscope/internal/config"
	"github.com/tomtom215/shillscope/internal/defense"
	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/ratings"
	"github.com/tomtom215/shillscope/internal/recommend"
	"github.com/tomtom215/shillscope/internal/scenario"
	"github.com/tomtom215/shillscope/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so this uses the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("ratings_path", cfg.Dataset.RatingsPath).
		Int("port", cfg.Server.Port).
		Msg("Starting Shillscope")

	scale := ratings.Scale{Min: cfg.Dataset.ScaleMin, Max: cfg.Dataset.ScaleMax}
	store, err := ratings.LoadRatings(cfg.Dataset.RatingsPath, scale)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load ratings dataset")
	}
	logging.Info().
		Int("users", store.NumUsers()).
		Int("items", store.NumItems()).
		Int("ratings", store.NumRatings()).
		Float64("global_mean", store.GlobalMean()).
		Msg("Dataset loaded")

	// Item titles are optional; without them the API serves bare IDs.
	var cat *catalog.Catalog
	if cfg.Dataset.ItemsPath != "" {
		titles, err := ratings.LoadItemTitles(cfg.Dataset.ItemsPath)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Dataset.ItemsPath).
				Msg("Item titles unavailable, serving IDs only")
		} else {
			cat = catalog.New(titles)
			logging.Info().Int("titles", cat.Size()).Msg("Item catalog loaded")
		}
	}

	params := attack.Params{
		TargetItem: cfg.Attack.TargetItem,
		Profiles:   cfg.Attack.Profiles,
		Fillers:    cfg.Attack.Fillers,
		Seed:       cfg.Attack.Seed,
	}
	if params.TargetItem == 0 {
		target, err := attack.PickTarget(store, cfg.Attack.MinTargetRatings, cfg.Attack.Seed)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to pick an attack target")
		}
		params.TargetItem = target
		logging.Info().Int("target_item", target).Msg("Attack target auto-selected")
	}

	orch := scenario.New(
		store,
		params,
		defense.Config{
			MinRatings:      cfg.Defense.MinRatings,
			MaxStdDev:       cfg.Defense.MaxStdDev,
			MinExtremeShare: cfg.Defense.MinExtremeShare,
			ClipFactor:      cfg.Defense.ClipFactor,
		},
		recommend.NewService(cfg.Recommend.Workers),
	)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	posters, posterCache := buildPosterClient(cfg, tree)
	if posterCache != nil {
		defer func() {
			if err := posterCache.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing poster cache")
			}
		}()
	}

	server := api.NewServer(orch, cat, posters, cfg.Recommend, cfg.Eval)
	router := api.NewRouter(server, cfg.Security, cfg.Server.Timeout)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, supervisor.DefaultTreeConfig().ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("Serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Shutdown complete")
}

// buildPosterClient wires the TMDB client and its cache. An empty API
// key disables posters entirely. With a cache path configured, the
// cache is Badger-backed and a GC service joins the data layer.
func buildPosterClient(cfg *config.Config, tree *supervisor.Tree) (*catalog.PosterClient, catalog.PosterCache) {
	if cfg.TMDB.APIKey == "" {
		logging.Info().Msg("TMDB API key not set, posters disabled")
		return nil, nil
	}

	posterCfg := catalog.PosterConfig{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		Burst:             cfg.TMDB.Burst,
		Timeout:           cfg.TMDB.Timeout,
	}

	if cfg.TMDB.CachePath == "" {
		logging.Info().Msg("Poster cache is in-memory")
		return catalog.NewPosterClient(posterCfg, catalog.NewMemoryPosterCache()), nil
	}

	cache, err := catalog.NewBadgerPosterCache(cfg.TMDB.CachePath)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.TMDB.CachePath).
			Msg("Persistent poster cache unavailable, falling back to memory")
		return catalog.NewPosterClient(posterCfg, catalog.NewMemoryPosterCache()), nil
	}

	tree.AddDataService(supervisor.NewCacheGCService(cache, 0))
	logging.Info().Str("path", cfg.TMDB.CachePath).Msg("Persistent poster cache opened")
	return catalog.NewPosterClient(posterCfg, cache), cache
}
