// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Autotime — activity-to-time-entry service
//
// Entry point for the autotime service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to PostgreSQL and Redis
//  3. Builds the suggestion engine (Gemini-backed, heuristic fallback)
//  4. Serves the pipeline API
//  5. Runs a daily retention sweep
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tallyline/autotime/internal/api"
	"github.com/tallyline/autotime/internal/config"
	"github.com/tallyline/autotime/internal/dedup"
	"github.com/tallyline/autotime/internal/entries"
	"github.com/tallyline/autotime/internal/llm"
	"github.com/tallyline/autotime/internal/lock"
	"github.com/tallyline/autotime/internal/pipeline"
	"github.com/tallyline/autotime/internal/retention"
	"github.com/tallyline/autotime/internal/source"
	"github.com/tallyline/autotime/internal/store"
	"github.com/tallyline/autotime/internal/suggest"
)

const retentionSweepInterval = 24 * time.Hour

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting autotime service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tenants", len(cfg.Tenants),
		"model", cfg.GeminiModel,
		"lock_ttl", cfg.ProcessLockTTL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Store (Postgres, schema ensured) ---
	st, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}

	// --- Dedup filter and per-user processing lease ---
	filter := dedup.NewFilter(rdb)
	locker := lock.New(rdb, cfg.ProcessLockTTL)

	// --- Suggestion engine ---
	// No API key means every activity takes the deterministic heuristic path.
	var completer llm.Completer
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:          cfg.GeminiAPIKey,
			Model:           cfg.GeminiModel,
			MaxOutputTokens: cfg.LLMMaxOutTokens,
			Timeout:         cfg.LLMTimeout,
		})
		if err != nil {
			slog.Error("failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		completer = gemini
	} else {
		slog.Warn("GEMINI_API_KEY not set, running with heuristic suggestions only")
	}
	engine := suggest.NewEngine(completer)

	// --- Pipeline wiring ---
	manager := entries.NewManager(st)
	svc := pipeline.New(st, filter, locker, engine, manager)

	// --- Source connector (optional) ---
	var fetcher *source.Fetcher
	if clients := source.Clients(ctx, cfg.Tenants); len(clients) > 0 {
		fetcher = source.NewFetcher(clients, source.DefaultGraphBaseURL)
		slog.Info("source connector enabled", "tenants", len(clients))
	}

	// --- Retention sweeper ---
	enforcer := retention.New(st)
	go func() {
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := enforcer.Sweep(ctx); err != nil {
					slog.Error("retention sweep failed", "error", err)
				}
			}
		}
	}()

	// --- API server ---
	handler := api.NewHandler(svc, manager, fetcher, cfg.SyncLookback)
	ready, err := api.Serve(ctx, cfg.Port, handler)
	if err != nil {
		slog.Error("failed to start API server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()

	rdb.Close()
	pgPool.Close()
	slog.Info("autotime service stopped")
}
