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

// Package retention scrubs raw activity content according to each user's
// retention preference. Only activity free-text is cleared; time entries and
// activity identity (fingerprint, processed state) are never touched, so
// deduplication keeps working after a sweep.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/tallyline/autotime/internal/models"
)

// Store is the slice of persistence the enforcer needs. Implemented by
// store.Store.
type Store interface {
	ListPreferenceUsers(ctx context.Context) ([]string, error)
	GetPreferences(ctx context.Context, userID string) (models.AIPreferences, error)
	ClearRawContent(ctx context.Context, userID string, olderThan time.Time) (int64, error)
}

// Enforcer runs retention sweeps across all users with preferences.
type Enforcer struct {
	store Store
	now   func() time.Time
}

// New creates a retention enforcer.
func New(store Store) *Enforcer {
	return &Enforcer{store: store, now: time.Now}
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Users    int   `json:"users"`
	Scrubbed int64 `json:"scrubbed"`
}

// Sweep applies every user's retention setting once. A failing user is
// logged and skipped; the sweep continues.
func (e *Enforcer) Sweep(ctx context.Context) (SweepResult, error) {
	users, err := e.store.ListPreferenceUsers(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, userID := range users {
		n, err := e.SweepUser(ctx, userID)
		if err != nil {
			slog.Error("retention sweep failed for user", "user", userID, "error", err)
			continue
		}
		res.Users++
		res.Scrubbed += n
	}

	slog.Info("retention sweep finished", "users", res.Users, "scrubbed", res.Scrubbed)
	return res, nil
}

// SweepUser applies one user's retention setting and returns the number of
// activities scrubbed. Users with indefinite retention and without the
// delete-after-processing flag are left alone.
func (e *Enforcer) SweepUser(ctx context.Context, userID string) (int64, error) {
	prefs, err := e.store.GetPreferences(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := e.now().UTC()
	var cutoff time.Time
	switch {
	case prefs.DeleteRawAfterProcessing:
		// Everything processed is already past its useful life.
		cutoff = now
	case prefs.RetentionDays >= 0:
		cutoff = now.AddDate(0, 0, -prefs.RetentionDays)
	default:
		return 0, nil
	}

	return e.store.ClearRawContent(ctx, userID, cutoff)
}
