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

package models

import "time"

// EntryStatus is the review state of a time entry.
type EntryStatus string

const (
	StatusPendingReview EntryStatus = "pending_review"
	StatusApproved      EntryStatus = "approved"
	StatusRejected      EntryStatus = "rejected"
)

// ValidEntryStatus reports whether s is a known entry status.
func ValidEntryStatus(s EntryStatus) bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TimeEntrySuggestion is the ephemeral output of the suggestion engine.
// It is never persisted directly; every suggestion must pass through the
// policy filter before a TimeEntry is created from it.
type TimeEntrySuggestion struct {
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Category        string    `json:"category"`
	Confidence      float64   `json:"confidence"` // 0.0–1.0
	CustomerName    string    `json:"customer_name,omitempty"`
	Billable        bool      `json:"billable"`
	SourceActivity  *Activity `json:"-"`
}

// TimeEntry is the durable, user-visible billable record.
//
// Status only moves forward: pending_review → approved | rejected. Once
// approved, ApprovedAt is set and the entry is no longer editable.
// SourceActivityIDs reference only activities owned by the same user.
type TimeEntry struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	CompanyID           string      `json:"company_id"`
	CustomerName        string      `json:"customer_name,omitempty"`
	Category            string      `json:"category"`
	StartTime           time.Time   `json:"start_time"`
	EndTime             time.Time   `json:"end_time"`
	Summary             string      `json:"summary"`
	Billable            bool        `json:"billable"`
	Status              EntryStatus `json:"status"`
	AIConfidencePercent int         `json:"ai_confidence_percent"` // 0–100
	SourceActivityIDs   []string    `json:"source_activity_ids,omitempty"`
	ApprovedAt          *time.Time  `json:"approved_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// EntryPatch carries an in-place edit of a pending entry. Nil fields are
// left unchanged. Identity fields (id, user, company) are not representable
// here on purpose — they are immutable.
type EntryPatch struct {
	CustomerName *string    `json:"customer_name,omitempty"`
	Category     *string    `json:"category,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	Billable     *bool      `json:"billable,omitempty"`
}

// Customer is a known client of a company, matched by email domain.
type Customer struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// Project is a known body of work with keywords used by the rule matcher.
// Position preserves insertion order for stable tie-breaking.
type Project struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Keywords  []string  `json:"keywords"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
