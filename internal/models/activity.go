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

// Package models defines the data structures shared across the pipeline.
package models

import "time"

// ActivityType identifies the kind of workplace event an activity records.
type ActivityType string

const (
	ActivityCalendar ActivityType = "calendar"
	ActivityEmail    ActivityType = "email"
	ActivityDocument ActivityType = "document"
)

// ValidActivityType reports whether t is one of the known activity types.
func ValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityCalendar, ActivityEmail, ActivityDocument:
		return true
	}
	return false
}

// RawActivity is a source payload before normalisation. Connectors and the
// ingestion API produce these; the normalizer turns them into Activities.
type RawActivity struct {
	Type            string            `json:"type"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	Participants    []string          `json:"participants,omitempty"`
	DurationMinutes int               `json:"duration_minutes,omitempty"`
	Source          string            `json:"source"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Activity is a normalised workplace event awaiting classification.
//
// An activity is created with Processed=false and flipped to true exactly
// once, in the same logical operation that persists the time entries derived
// from it. Retention may later clear Description, but the identifying fields
// and ContentHash are kept indefinitely.
type Activity struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Type            ActivityType      `json:"type"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	Participants    []string          `json:"participants,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	Source          string            `json:"source"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ContentHash     string            `json:"content_hash"`
	Processed       bool              `json:"processed"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
