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

// Package normalize converts heterogeneous source payloads (calendar events,
// email messages, generic documents) into the canonical Activity shape.
// It is a pure transform: no side effects, no persistence.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyline/autotime/internal/apperr"
	"github.com/tallyline/autotime/internal/dedup"
	"github.com/tallyline/autotime/internal/models"
)

// Activity normalises a raw payload into an Activity owned by userID.
//
// Defaults: a missing start time becomes the ingestion time; a missing
// duration is derived from endTime-startTime, floored at 1 minute.
// Payloads missing a title or source are rejected.
func Activity(raw models.RawActivity, userID string, now time.Time) (models.Activity, error) {
	title := strings.TrimSpace(raw.Title)
	source := strings.TrimSpace(raw.Source)
	if title == "" {
		return models.Activity{}, apperr.Validation("activity title is required")
	}
	if source == "" {
		return models.Activity{}, apperr.Validation("activity source is required")
	}

	typ := models.ActivityType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !models.ValidActivityType(typ) {
		return models.Activity{}, apperr.Validation("unknown activity type %q", raw.Type)
	}

	start := now.UTC()
	if raw.StartTime != nil {
		start = raw.StartTime.UTC()
	}

	var end *time.Time
	if raw.EndTime != nil {
		e := raw.EndTime.UTC()
		end = &e
	}

	duration := raw.DurationMinutes
	if duration <= 0 && end != nil {
		duration = int(end.Sub(start).Minutes())
		if duration < 1 {
			duration = 1
		}
	}

	participants := make([]string, 0, len(raw.Participants))
	for _, p := range raw.Participants {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			participants = append(participants, p)
		}
	}

	// Non-nil so the store writes '{}' rather than NULL.
	metadata := raw.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return models.Activity{
		ID:              uuid.New().String(),
		UserID:          userID,
		Type:            typ,
		Title:           title,
		Description:     strings.TrimSpace(raw.Description),
		StartTime:       start,
		EndTime:         end,
		Participants:    participants,
		DurationMinutes: duration,
		Source:          source,
		Metadata:        metadata,
		ContentHash:     dedup.Fingerprint(title, start, source),
		CreatedAt:       now.UTC(),
	}, nil
}
