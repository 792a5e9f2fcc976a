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

// Package store provides the Postgres persistence layer: activities, time
// entries, per-user AI preferences, and the customer/project directory used
// by the rule matcher.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides CRUD operations for all pipeline collections in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store backed by the given Postgres pool. It ensures all
// tables exist on creation.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activities (
			id               UUID PRIMARY KEY,
			user_id          TEXT NOT NULL,
			type             TEXT NOT NULL,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			start_time       TIMESTAMPTZ NOT NULL,
			end_time         TIMESTAMPTZ,
			participants     TEXT[] NOT NULL DEFAULT '{}',
			duration_minutes INT NOT NULL DEFAULT 0,
			source           TEXT NOT NULL,
			metadata         JSONB NOT NULL DEFAULT '{}',
			content_hash     TEXT NOT NULL,
			processed        BOOLEAN NOT NULL DEFAULT FALSE,
			processed_at     TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, content_hash)
		);
		CREATE INDEX IF NOT EXISTS idx_activities_unprocessed
			ON activities(user_id) WHERE NOT processed;

		CREATE TABLE IF NOT EXISTS time_entries (
			id                    UUID PRIMARY KEY,
			user_id               TEXT NOT NULL,
			company_id            TEXT NOT NULL,
			customer_name         TEXT NOT NULL DEFAULT '',
			category              TEXT NOT NULL,
			start_time            TIMESTAMPTZ NOT NULL,
			end_time              TIMESTAMPTZ NOT NULL,
			summary               TEXT NOT NULL,
			billable              BOOLEAN NOT NULL DEFAULT TRUE,
			status                TEXT NOT NULL DEFAULT 'pending_review',
			ai_confidence_percent INT NOT NULL,
			source_activity_ids   TEXT[] NOT NULL DEFAULT '{}',
			approved_at           TIMESTAMPTZ,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_entries_user_status
			ON time_entries(user_id, status);

		CREATE TABLE IF NOT EXISTS ai_preferences (
			user_id                     TEXT PRIMARY KEY,
			confidence_threshold        INT NOT NULL DEFAULT 80,
			description_length          TEXT NOT NULL DEFAULT 'standard',
			auto_approve_enabled        BOOLEAN NOT NULL DEFAULT FALSE,
			allowed_domains             TEXT[] NOT NULL DEFAULT '{}',
			allowed_participants        TEXT[] NOT NULL DEFAULT '{}',
			delete_raw_after_processing BOOLEAN NOT NULL DEFAULT FALSE,
			retention_days              INT NOT NULL DEFAULT -1,
			created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS customers (
			id         UUID PRIMARY KEY,
			company_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			domain     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(company_id, domain)
		);

		CREATE TABLE IF NOT EXISTS projects (
			id         UUID PRIMARY KEY,
			company_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			keywords   TEXT[] NOT NULL DEFAULT '{}',
			position   BIGSERIAL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_projects_company
			ON projects(company_id, position);
	`)
	return err
}
