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

	"github.com/tallyline/autotime/internal/models"
)

const prefColumns = `
	user_id, confidence_threshold, description_length, auto_approve_enabled,
	allowed_domains, allowed_participants, delete_raw_after_processing,
	retention_days, created_at, updated_at`

// GetPreferences returns the user's AI preferences, creating the row with
// defaults on first read. The insert races safely: ON CONFLICT DO NOTHING
// followed by a read always returns exactly one row.
func (s *Store) GetPreferences(ctx context.Context, userID string) (models.AIPreferences, error) {
	d := models.DefaultPreferences(userID)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_preferences
			(user_id, confidence_threshold, description_length, auto_approve_enabled,
			 allowed_domains, allowed_participants, delete_raw_after_processing, retention_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING
	`, d.UserID, d.ConfidenceThreshold, d.DescriptionLength, d.AutoApproveEnabled,
		d.AllowedDomains, d.AllowedParticipants, d.DeleteRawAfterProcessing, d.RetentionDays)
	if err != nil {
		return models.AIPreferences{}, fmt.Errorf("ensure preferences row: %w", err)
	}

	var p models.AIPreferences
	err = s.pool.QueryRow(ctx, `
		SELECT `+prefColumns+` FROM ai_preferences WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.ConfidenceThreshold, &p.DescriptionLength, &p.AutoApproveEnabled,
		&p.AllowedDomains, &p.AllowedParticipants, &p.DeleteRawAfterProcessing,
		&p.RetentionDays, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.AIPreferences{}, fmt.Errorf("read preferences: %w", err)
	}
	return p, nil
}

// SavePreferences writes back an updated preferences row.
func (s *Store) SavePreferences(ctx context.Context, p models.AIPreferences) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ai_preferences
		SET confidence_threshold = $2, description_length = $3,
		    auto_approve_enabled = $4, allowed_domains = $5,
		    allowed_participants = $6, delete_raw_after_processing = $7,
		    retention_days = $8, updated_at = NOW()
		WHERE user_id = $1
	`, p.UserID, p.ConfidenceThreshold, p.DescriptionLength, p.AutoApproveEnabled,
		p.AllowedDomains, p.AllowedParticipants, p.DeleteRawAfterProcessing,
		p.RetentionDays)
	return err
}
