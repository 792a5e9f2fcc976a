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

// Autotime retention sweep — one-shot CLI.
//
// Applies every user's retention preference once and exits. Run it from cron
// or an operator shell when the in-server daily sweep is not enough, e.g.
// right after a user tightens their retention window.
//
// Usage:
//
//	sweep                  # sweep all users with preferences
//	sweep -user <user-id>  # sweep a single user
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyline/autotime/internal/config"
	"github.com/tallyline/autotime/internal/retention"
	"github.com/tallyline/autotime/internal/store"
)

func main() {
	userID := flag.String("user", "", "sweep only this user")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall sweep timeout")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

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

	st, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}

	enforcer := retention.New(st)

	if *userID != "" {
		n, err := enforcer.SweepUser(ctx, *userID)
		if err != nil {
			slog.Error("sweep failed", "user", *userID, "error", err)
			os.Exit(1)
		}
		slog.Info("sweep complete", "user", *userID, "scrubbed", n)
		return
	}

	res, err := enforcer.Sweep(ctx)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		os.Exit(1)
	}
	slog.Info("sweep complete", "users", res.Users, "scrubbed", res.Scrubbed)
}
