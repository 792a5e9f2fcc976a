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
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tallyline/autotime/internal/models"
)

const entryColumns = `
	id, user_id, company_id, customer_name, category, start_time, end_time,
	summary, billable, status, ai_confidence_percent, source_activity_ids,
	approved_at, created_at, updated_at`

// CreateEntryWithActivities persists a time entry and marks its source
// activities processed in one transaction. If either half fails the whole
// operation rolls back, so activities stay unprocessed and a retry is safe
// (the dedup fingerprint prevents duplicates on re-ingestion).
func (s *Store) CreateEntryWithActivities(ctx context.Context, e models.TimeEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin entry tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO time_entries
			(id, user_id, company_id, customer_name, category, start_time,
			 end_time, summary, billable, status, ai_confidence_percent,
			 source_activity_ids, approved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, e.ID, e.UserID, e.CompanyID, e.CustomerName, e.Category, e.StartTime,
		e.EndTime, e.Summary, e.Billable, e.Status, e.AIConfidencePercent,
		e.SourceActivityIDs, e.ApprovedAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert time entry: %w", err)
	}

	if len(e.SourceActivityIDs) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE activities
			SET processed = TRUE, processed_at = NOW()
			WHERE user_id = $1 AND id = ANY($2)
		`, e.UserID, e.SourceActivityIDs)
		if err != nil {
			return fmt.Errorf("mark activities processed: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetEntry retrieves a single time entry by ID, or nil if absent.
func (s *Store) GetEntry(ctx context.Context, entryID string) (*models.TimeEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+entryColumns+` FROM time_entries WHERE id = $1
	`, entryID)
	return scanEntry(row)
}

// ListEntries returns the user's entries, newest first, optionally filtered
// by status.
func (s *Store) ListEntries(ctx context.Context, userID string, status *models.EntryStatus, limit int) ([]models.TimeEntry, error) {
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT `+entryColumns+`
			FROM time_entries
			WHERE user_id = $1 AND status = $2
			ORDER BY start_time DESC
			LIMIT $3
		`, userID, *status, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+entryColumns+`
			FROM time_entries
			WHERE user_id = $1
			ORDER BY start_time DESC
			LIMIT $2
		`, userID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// SaveEntry writes back the mutable fields of an entry (status changes and
// pending-review edits).
func (s *Store) SaveEntry(ctx context.Context, e models.TimeEntry) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE time_entries
		SET customer_name = $2, category = $3, start_time = $4, end_time = $5,
		    summary = $6, billable = $7, status = $8, approved_at = $9,
		    updated_at = NOW()
		WHERE id = $1
	`, e.ID, e.CustomerName, e.Category, e.StartTime, e.EndTime,
		e.Summary, e.Billable, e.Status, e.ApprovedAt)
	return err
}

// DeleteEntry removes a time entry permanently.
func (s *Store) DeleteEntry(ctx context.Context, entryID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM time_entries WHERE id = $1`, entryID)
	return err
}

func scanEntry(row pgx.Row) (*models.TimeEntry, error) {
	var e models.TimeEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.CompanyID, &e.CustomerName, &e.Category,
		&e.StartTime, &e.EndTime, &e.Summary, &e.Billable, &e.Status,
		&e.AIConfidencePercent, &e.SourceActivityIDs, &e.ApprovedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	for rows.Next() {
		var e models.TimeEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.CompanyID, &e.CustomerName, &e.Category,
			&e.StartTime, &e.EndTime, &e.Summary, &e.Billable, &e.Status,
			&e.AIConfidencePercent, &e.SourceActivityIDs, &e.ApprovedAt,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
