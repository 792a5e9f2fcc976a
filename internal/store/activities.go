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

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tallyline/autotime/internal/models"
)

const activityColumns = `
	id, user_id, type, title, description, start_time, end_time,
	participants, duration_minutes, source, metadata, content_hash,
	processed, processed_at, created_at`

// InsertActivity inserts an activity unless one with the same fingerprint
// already exists for the user. Returns true if a row was inserted. This is
// the durable half of ingestion idempotence.
func (s *Store) InsertActivity(ctx context.Context, act models.Activity) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO activities
			(id, user_id, type, title, description, start_time, end_time,
			 participants, duration_minutes, source, metadata, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, content_hash) DO NOTHING
	`, act.ID, act.UserID, act.Type, act.Title, act.Description, act.StartTime,
		act.EndTime, act.Participants, act.DurationMinutes, act.Source,
		act.Metadata, act.ContentHash, act.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountUnprocessed returns the number of activities awaiting processing.
func (s *Store) CountUnprocessed(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM activities WHERE user_id = $1 AND NOT processed
	`, userID).Scan(&n)
	return n, err
}

// ListUnprocessed returns up to limit unprocessed activities, oldest first.
func (s *Store) ListUnprocessed(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE user_id = $1 AND NOT processed
		ORDER BY start_time, created_at
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// MarkProcessed flips the processed flag for the given activities. Used for
// activities whose suggestion was dropped by policy; activities that produce
// an entry are marked inside the entry-creation transaction instead.
func (s *Store) MarkProcessed(ctx context.Context, userID string, activityIDs []string) error {
	if len(activityIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE activities
		SET processed = TRUE, processed_at = NOW()
		WHERE user_id = $1 AND id = ANY($2)
	`, userID, activityIDs)
	return err
}

// ClearRawContent removes free-text fields from processed activities older
// than the cutoff, preserving identity, fingerprint, and processed state.
// Returns the number of rows scrubbed.
func (s *Store) ClearRawContent(ctx context.Context, userID string, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE activities
		SET description = '', metadata = '{}'
		WHERE user_id = $1 AND processed AND created_at < $2
		  AND (description <> '' OR metadata <> '{}')
	`, userID, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListPreferenceUsers returns the user IDs that have a preferences row.
// The retention sweeper iterates these.
func (s *Store) ListPreferenceUsers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM ai_preferences ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func collectActivities(rows pgx.Rows) ([]models.Activity, error) {
	var acts []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Type, &a.Title, &a.Description, &a.StartTime,
			&a.EndTime, &a.Participants, &a.DurationMinutes, &a.Source,
			&a.Metadata, &a.ContentHash, &a.Processed, &a.ProcessedAt, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}
