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

// DescriptionLength controls how verbose generated summaries should be.
type DescriptionLength string

const (
	DescriptionBrief    DescriptionLength = "brief"
	DescriptionStandard DescriptionLength = "standard"
	DescriptionDetailed DescriptionLength = "detailed"
)

// ValidDescriptionLength reports whether l is a known description length.
func ValidDescriptionLength(l DescriptionLength) bool {
	switch l {
	case DescriptionBrief, DescriptionStandard, DescriptionDetailed:
		return true
	}
	return false
}

// RetentionIndefinite disables age-based raw content cleanup.
const RetentionIndefinite = -1

// AIPreferences is the per-user pipeline configuration. Missing rows are
// created with defaults on first read and only change via explicit update.
type AIPreferences struct {
	UserID                   string            `json:"user_id"`
	ConfidenceThreshold      int               `json:"confidence_threshold"` // 0–100
	DescriptionLength        DescriptionLength `json:"description_length"`
	AutoApproveEnabled       bool              `json:"auto_approve_enabled"`
	AllowedDomains           []string          `json:"allowed_domains,omitempty"`
	AllowedParticipants      []string          `json:"allowed_participants,omitempty"`
	DeleteRawAfterProcessing bool              `json:"delete_raw_after_processing"`
	RetentionDays            int               `json:"retention_days"` // -1 = indefinite
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// DefaultPreferences is the factory for a user's initial preferences row,
// created explicitly on first read.
func DefaultPreferences(userID string) AIPreferences {
	return AIPreferences{
		UserID:              userID,
		ConfidenceThreshold: 80,
		DescriptionLength:   DescriptionStandard,
		AllowedDomains:      []string{},
		AllowedParticipants: []string{},
		RetentionDays:       RetentionIndefinite,
	}
}

// PreferencesPatch carries a partial preferences update. Nil fields are
// left unchanged.
type PreferencesPatch struct {
	ConfidenceThreshold      *int               `json:"confidence_threshold,omitempty"`
	DescriptionLength        *DescriptionLength `json:"description_length,omitempty"`
	AutoApproveEnabled       *bool              `json:"auto_approve_enabled,omitempty"`
	AllowedDomains           *[]string          `json:"allowed_domains,omitempty"`
	AllowedParticipants      *[]string          `json:"allowed_participants,omitempty"`
	DeleteRawAfterProcessing *bool              `json:"delete_raw_after_processing,omitempty"`
	RetentionDays            *int               `json:"retention_days,omitempty"`
}
