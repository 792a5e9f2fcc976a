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

package entries

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tallyline/autotime/internal/apperr"
	"github.com/tallyline/autotime/internal/models"
	"github.com/tallyline/autotime/internal/policy"
)

// --- Mock store ---

type mockStore struct {
	mu      sync.Mutex
	entries map[string]models.TimeEntry
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[string]models.TimeEntry)}
}

func (m *mockStore) CreateEntryWithActivities(_ context.Context, e models.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *mockStore) GetEntry(_ context.Context, entryID string) (*models.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *mockStore) ListEntries(_ context.Context, userID string, status *models.EntryStatus, limit int) ([]models.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TimeEntry
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if status != nil && e.Status != *status {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) SaveEntry(_ context.Context, e models.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *mockStore) DeleteEntry(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entryID)
	return nil
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestManager(store Store) *Manager {
	m := NewManager(store)
	m.now = func() time.Time { return fixedNow }
	return m
}

func decisionFor(act *models.Activity, confidence float64, autoApprove bool) policy.Decision {
	return policy.Decision{
		Suggestion: models.TimeEntrySuggestion{
			Description:     "Reviewed contract",
			DurationMinutes: 30,
			Category:        "email",
			Confidence:      confidence,
			Billable:        true,
			SourceActivity:  act,
		},
		AutoApprove: autoApprove,
	}
}

func pendingEntry(t *testing.T, m *Manager) models.TimeEntry {
	t.Helper()
	act := &models.Activity{
		ID:        "act-1",
		StartTime: fixedNow.Add(-2 * time.Hour),
	}
	e, err := m.CreateFromDecision(context.Background(), "user-1", "co-1", decisionFor(act, 0.6, false))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return e
}

// --- Tests ---

func TestCreateFromDecision_PendingByDefault(t *testing.T) {
	m := newTestManager(newMockStore())
	e := pendingEntry(t, m)

	if e.Status != models.StatusPendingReview {
		t.Errorf("expected pending_review, got %s", e.Status)
	}
	if e.ApprovedAt != nil {
		t.Error("pending entries must not carry ApprovedAt")
	}
	if e.AIConfidencePercent != 60 {
		t.Errorf("expected 60%%, got %d", e.AIConfidencePercent)
	}
	if len(e.SourceActivityIDs) != 1 || e.SourceActivityIDs[0] != "act-1" {
		t.Errorf("source activity not linked: %v", e.SourceActivityIDs)
	}
	wantEnd := e.StartTime.Add(30 * time.Minute)
	if !e.EndTime.Equal(wantEnd) {
		t.Errorf("expected end %v, got %v", wantEnd, e.EndTime)
	}
}

func TestCreateFromDecision_AutoApprove(t *testing.T) {
	m := newTestManager(newMockStore())
	act := &models.Activity{ID: "act-2", StartTime: fixedNow}

	e, err := m.CreateFromDecision(context.Background(), "user-1", "co-1", decisionFor(act, 0.92, true))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if e.Status != models.StatusApproved {
		t.Errorf("expected approved, got %s", e.Status)
	}
	if e.ApprovedAt == nil || !e.ApprovedAt.Equal(fixedNow) {
		t.Errorf("ApprovedAt not stamped: %v", e.ApprovedAt)
	}
	if e.AIConfidencePercent != 92 {
		t.Errorf("expected 92%%, got %d", e.AIConfidencePercent)
	}
}

func TestUpdateStatus_ApproveAndReject(t *testing.T) {
	m := newTestManager(newMockStore())

	e := pendingEntry(t, m)
	approved, err := m.UpdateStatus(context.Background(), "user-1", e.ID, models.StatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.StatusApproved || approved.ApprovedAt == nil {
		t.Errorf("approval incomplete: %+v", approved)
	}

	e2 := pendingEntry(t, m)
	rejected, err := m.UpdateStatus(context.Background(), "user-1", e2.ID, models.StatusRejected)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.ApprovedAt != nil {
		t.Error("rejection must not stamp ApprovedAt")
	}
}

func TestUpdateStatus_TerminalStatesAreFinal(t *testing.T) {
	m := newTestManager(newMockStore())
	e := pendingEntry(t, m)

	if _, err := m.UpdateStatus(context.Background(), "user-1", e.ID, models.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := m.UpdateStatus(context.Background(), "user-1", e.ID, models.StatusRejected)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("approved entry must refuse further transitions, got %v", err)
	}
}

func TestUpdateStatus_CannotReturnToPending(t *testing.T) {
	m := newTestManager(newMockStore())
	e := pendingEntry(t, m)

	_, err := m.UpdateStatus(context.Background(), "user-1", e.ID, models.StatusPendingReview)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateStatus_OwnershipEnforced(t *testing.T) {
	m := newTestManager(newMockStore())
	e := pendingEntry(t, m)

	_, err := m.UpdateStatus(context.Background(), "intruder", e.ID, models.StatusApproved)
	if !apperr.IsKind(err, apperr.KindAccessDenied) {
		t.Errorf("expected access denied, got %v", err)
	}

	_, err = m.UpdateStatus(context.Background(), "user-1", "no-such-entry", models.StatusApproved)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestEdit_PendingOnly(t *testing.T) {
	m := newTestManager(newMockStore())
	e := pendingEntry(t, m)

	summary := "Corrected summary"
	billable := false
	edited, err := m.Edit(context.Background(), "user-1", e.ID, models.EntryPatch{
		Summary:  &summary,
		Billable: &billable,
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Summary != summary || edited.Billable {
		t.Errorf("patch not applied: %+v", edited)
	}

	if _, err := m.UpdateStatus(context.Background(), "user-1", e.ID, models.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = m.Edit(context.Background(), "user-1", e.ID, models.EntryPatch{Summary: &summary})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("approved entries must be immutable, got %v", err)
	}
}

func TestEdit_RejectsInvertedWindow(t *testing.T) {
	m := newTestManager(newMockStore())
	e := pendingEntry(t, m)

	badEnd := e.StartTime.Add(-time.Hour)
	_, err := m.Edit(context.Background(), "user-1", e.ID, models.EntryPatch{EndTime: &badEnd})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for end before start, got %v", err)
	}
}

func TestDelete_OwnerOnly(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store)
	e := pendingEntry(t, m)

	if err := m.Delete(context.Background(), "intruder", e.ID); !apperr.IsKind(err, apperr.KindAccessDenied) {
		t.Errorf("expected access denied, got %v", err)
	}
	if err := m.Delete(context.Background(), "user-1", e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.GetEntry(context.Background(), e.ID); got != nil {
		t.Error("entry still present after delete")
	}
}

func TestDeriveCustomerName(t *testing.T) {
	cases := []struct {
		name string
		s    models.TimeEntrySuggestion
		act  *models.Activity
		want string
	}{
		{
			"metadata customer wins",
			models.TimeEntrySuggestion{CustomerName: "Matched"},
			&models.Activity{Metadata: map[string]string{"customer": "Explicit Inc"}},
			"Explicit Inc",
		},
		{
			"suggestion name second",
			models.TimeEntrySuggestion{CustomerName: "Matched"},
			&models.Activity{Participants: []string{"x@fallback.com"}},
			"Matched",
		},
		{
			"participant domain fallback",
			models.TimeEntrySuggestion{},
			&models.Activity{Participants: []string{"jane@northwind.com"}},
			"Northwind",
		},
		{
			"nothing to derive",
			models.TimeEntrySuggestion{},
			&models.Activity{},
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveCustomerName(tc.s, tc.act); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestList_ValidatesStatus(t *testing.T) {
	m := newTestManager(newMockStore())
	if _, err := m.List(context.Background(), "user-1", "archived", 10); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
}
