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

// Package entries manages the time-entry review state machine:
// pending_review → approved | rejected. Entries are created from
// policy-filtered suggestions, owned exclusively by their user, and only
// editable while pending.
package entries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyline/autotime/internal/apperr"
	"github.com/tallyline/autotime/internal/models"
	"github.com/tallyline/autotime/internal/policy"
)

// Store is the persistence the manager needs. Implemented by store.Store.
type Store interface {
	CreateEntryWithActivities(ctx context.Context, e models.TimeEntry) error
	GetEntry(ctx context.Context, entryID string) (*models.TimeEntry, error)
	ListEntries(ctx context.Context, userID string, status *models.EntryStatus, limit int) ([]models.TimeEntry, error)
	SaveEntry(ctx context.Context, e models.TimeEntry) error
	DeleteEntry(ctx context.Context, entryID string) error
}

// Manager applies the lifecycle rules on top of the store.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a lifecycle manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// CreateFromDecision persists a filtered suggestion as a time entry and
// marks its source activity processed in the same transaction. Auto-approved
// suggestions are created directly in approved state with ApprovedAt set.
func (m *Manager) CreateFromDecision(ctx context.Context, userID, companyID string, d policy.Decision) (models.TimeEntry, error) {
	s := d.Suggestion
	act := s.SourceActivity

	now := m.now().UTC()
	start := now
	sourceIDs := []string{}
	if act != nil {
		start = act.StartTime
		sourceIDs = []string{act.ID}
	}
	end := start.Add(time.Duration(s.DurationMinutes) * time.Minute)

	e := models.TimeEntry{
		ID:                  uuid.New().String(),
		UserID:              userID,
		CompanyID:           companyID,
		CustomerName:        deriveCustomerName(s, act),
		Category:            s.Category,
		StartTime:           start,
		EndTime:             end,
		Summary:             s.Description,
		Billable:            s.Billable,
		Status:              models.StatusPendingReview,
		AIConfidencePercent: confidencePercent(s.Confidence),
		SourceActivityIDs:   sourceIDs,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if d.AutoApprove {
		e.Status = models.StatusApproved
		e.ApprovedAt = &now
	}

	if err := m.store.CreateEntryWithActivities(ctx, e); err != nil {
		return models.TimeEntry{}, apperr.Persistence("create time entry", err)
	}

	slog.Info("time entry created",
		"entry_id", e.ID,
		"user", userID,
		"status", e.Status,
		"confidence", e.AIConfidencePercent,
	)
	return e, nil
}

// List returns the user's entries, optionally filtered by status.
func (m *Manager) List(ctx context.Context, userID string, status string, limit int) ([]models.TimeEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var filter *models.EntryStatus
	if status != "" {
		st := models.EntryStatus(status)
		if !models.ValidEntryStatus(st) {
			return nil, apperr.Validation("unknown status %q", status)
		}
		filter = &st
	}
	entries, err := m.store.ListEntries(ctx, userID, filter, limit)
	if err != nil {
		return nil, apperr.Persistence("list time entries", err)
	}
	return entries, nil
}

// UpdateStatus advances an entry through the state machine. Only the owner
// may transition, only pending entries move, and approval stamps ApprovedAt.
func (m *Manager) UpdateStatus(ctx context.Context, userID, entryID string, status models.EntryStatus) (models.TimeEntry, error) {
	if !models.ValidEntryStatus(status) {
		return models.TimeEntry{}, apperr.Validation("unknown status %q", status)
	}
	if status == models.StatusPendingReview {
		return models.TimeEntry{}, apperr.Validation("cannot move an entry back to pending_review")
	}

	e, err := m.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if e.Status != models.StatusPendingReview {
		return models.TimeEntry{}, apperr.Validation("entry is %s and can no longer change status", e.Status)
	}

	e.Status = status
	if status == models.StatusApproved {
		now := m.now().UTC()
		e.ApprovedAt = &now
	}

	if err := m.store.SaveEntry(ctx, *e); err != nil {
		return models.TimeEntry{}, apperr.Persistence("update entry status", err)
	}
	return *e, nil
}

// Edit applies an in-place edit to a pending entry. Identity fields are not
// part of the patch type, so they cannot be overwritten.
func (m *Manager) Edit(ctx context.Context, userID, entryID string, patch models.EntryPatch) (models.TimeEntry, error) {
	e, err := m.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if e.Status != models.StatusPendingReview {
		return models.TimeEntry{}, apperr.Validation("only pending_review entries can be edited")
	}

	if patch.CustomerName != nil {
		e.CustomerName = *patch.CustomerName
	}
	if patch.Category != nil {
		if strings.TrimSpace(*patch.Category) == "" {
			return models.TimeEntry{}, apperr.Validation("category cannot be empty")
		}
		e.Category = *patch.Category
	}
	if patch.StartTime != nil {
		e.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		e.EndTime = patch.EndTime.UTC()
	}
	if patch.Summary != nil {
		if strings.TrimSpace(*patch.Summary) == "" {
			return models.TimeEntry{}, apperr.Validation("summary cannot be empty")
		}
		e.Summary = *patch.Summary
	}
	if patch.Billable != nil {
		e.Billable = *patch.Billable
	}
	if !e.EndTime.After(e.StartTime) {
		return models.TimeEntry{}, apperr.Validation("end_time must be after start_time")
	}

	if err := m.store.SaveEntry(ctx, *e); err != nil {
		return models.TimeEntry{}, apperr.Persistence("edit entry", err)
	}
	return *e, nil
}

// Delete removes an entry permanently. Owner only.
func (m *Manager) Delete(ctx context.Context, userID, entryID string) error {
	if _, err := m.ownedEntry(ctx, userID, entryID); err != nil {
		return err
	}
	if err := m.store.DeleteEntry(ctx, entryID); err != nil {
		return apperr.Persistence("delete entry", err)
	}
	return nil
}

func (m *Manager) ownedEntry(ctx context.Context, userID, entryID string) (*models.TimeEntry, error) {
	e, err := m.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, apperr.Persistence("load entry", err)
	}
	if e == nil {
		return nil, apperr.NotFound("time entry %s not found", entryID)
	}
	if e.UserID != userID {
		return nil, apperr.AccessDenied("time entry %s belongs to another user", entryID)
	}
	return e, nil
}

func confidencePercent(confidence float64) int {
	p := int(confidence*100 + 0.5)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// deriveCustomerName is best-effort: explicit customer/company metadata
// first, then the matched customer, then the first participant's email
// domain fragment.
func deriveCustomerName(s models.TimeEntrySuggestion, act *models.Activity) string {
	if act != nil {
		if v := act.Metadata["customer"]; v != "" {
			return v
		}
		if v := act.Metadata["company"]; v != "" {
			return v
		}
	}
	if s.CustomerName != "" {
		return s.CustomerName
	}
	if act != nil {
		for _, p := range act.Participants {
			at := strings.LastIndex(p, "@")
			if at < 0 || at == len(p)-1 {
				continue
			}
			domain := p[at+1:]
			if dot := strings.Index(domain, "."); dot > 0 {
				domain = domain[:dot]
			}
			if domain == "" {
				continue
			}
			return strings.ToUpper(domain[:1]) + domain[1:]
		}
	}
	return ""
}
