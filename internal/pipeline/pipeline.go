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

// Package pipeline orchestrates the activity-to-time-entry flow: ingestion
// with deduplication, batch processing under a per-user lease, and the
// per-user AI preferences that steer both.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tallyline/autotime/internal/apperr"
	"github.com/tallyline/autotime/internal/lock"
	"github.com/tallyline/autotime/internal/match"
	"github.com/tallyline/autotime/internal/models"
	"github.com/tallyline/autotime/internal/normalize"
	"github.com/tallyline/autotime/internal/policy"
)

// DefaultBatchSize bounds one processing run. Anything beyond it stays
// unprocessed and is picked up by the next run.
const DefaultBatchSize = 50

// Store is the persistence surface the pipeline needs. Implemented by
// store.Store.
type Store interface {
	InsertActivity(ctx context.Context, act models.Activity) (bool, error)
	CountUnprocessed(ctx context.Context, userID string) (int, error)
	ListUnprocessed(ctx context.Context, userID string, limit int) ([]models.Activity, error)
	MarkProcessed(ctx context.Context, userID string, activityIDs []string) error
	ClearRawContent(ctx context.Context, userID string, olderThan time.Time) (int64, error)
	ListCustomers(ctx context.Context, companyID string) ([]models.Customer, error)
	ListProjects(ctx context.Context, companyID string) ([]models.Project, error)
	GetPreferences(ctx context.Context, userID string) (models.AIPreferences, error)
	SavePreferences(ctx context.Context, p models.AIPreferences) error
}

// SeenFilter is the fast-path duplicate check. Implemented by dedup.Filter.
// Seen is read-only; Mark is called only after the activity is durable, so a
// failed insert never poisons a retry of the same payload.
type SeenFilter interface {
	Seen(ctx context.Context, userID, fingerprint string) (bool, error)
	Mark(ctx context.Context, userID, fingerprint string) error
}

// Locker hands out per-user processing leases. Implemented by lock.UserLock.
type Locker interface {
	Acquire(ctx context.Context, userID string) (lock.Lease, error)
}

// Suggester produces at most one suggestion per activity. Implemented by
// suggest.Engine.
type Suggester interface {
	Suggest(ctx context.Context, act models.Activity, matcher *match.Matcher, descLen models.DescriptionLength) *models.TimeEntrySuggestion
}

// EntryCreator persists filtered suggestions. Implemented by entries.Manager.
type EntryCreator interface {
	CreateFromDecision(ctx context.Context, userID, companyID string, d policy.Decision) (models.TimeEntry, error)
}

// Service wires the pipeline stages together.
type Service struct {
	store   Store
	seen    SeenFilter
	locker  Locker
	engine  Suggester
	creator EntryCreator
	now     func() time.Time
}

// New creates the pipeline service.
func New(store Store, seen SeenFilter, locker Locker, engine Suggester, creator EntryCreator) *Service {
	return &Service{
		store:   store,
		seen:    seen,
		locker:  locker,
		engine:  engine,
		creator: creator,
		now:     time.Now,
	}
}

// IngestResult summarises one ingestion batch.
type IngestResult struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
}

// Ingest normalises and stores a batch of raw activities. Duplicates — by
// the Redis seen-filter or the store's fingerprint constraint — are counted,
// not errors. An invalid payload rejects the whole batch so the caller can
// fix it.
func (s *Service) Ingest(ctx context.Context, userID string, raws []models.RawActivity) (IngestResult, error) {
	var res IngestResult
	now := s.now()

	for _, raw := range raws {
		act, err := normalize.Activity(raw, userID, now)
		if err != nil {
			return IngestResult{}, err
		}

		// The seen-filter is advisory. A Redis miss or failure falls
		// through to the insert, where the unique constraint decides.
		seen, err := s.seen.Seen(ctx, userID, act.ContentHash)
		if err != nil {
			slog.Warn("dedup filter unavailable, relying on store constraint",
				"user", userID, "error", err)
			seen = false
		}
		if seen {
			res.Duplicates++
			continue
		}

		inserted, err := s.store.InsertActivity(ctx, act)
		if err != nil {
			return IngestResult{}, apperr.Persistence("insert activity", err)
		}

		// The fingerprint is marked only now that the row is durable, so a
		// failed insert leaves the fast path clean for the caller's retry.
		if err := s.seen.Mark(ctx, userID, act.ContentHash); err != nil {
			slog.Warn("dedup filter mark failed", "user", userID, "error", err)
		}

		if inserted {
			res.Accepted++
		} else {
			res.Duplicates++
		}
	}

	slog.Info("activities ingested",
		"user", userID,
		"accepted", res.Accepted,
		"duplicates", res.Duplicates,
	)
	return res, nil
}

// CountUnprocessed reports how many activities await processing.
func (s *Service) CountUnprocessed(ctx context.Context, userID string) (int, error) {
	n, err := s.store.CountUnprocessed(ctx, userID)
	if err != nil {
		return 0, apperr.Persistence("count unprocessed", err)
	}
	return n, nil
}

// ProcessResult summarises one processing run.
type ProcessResult struct {
	Processed    int                `json:"processed"`
	Created      int                `json:"created"`
	AutoApproved int                `json:"auto_approved"`
	Skipped      int                `json:"skipped"`
	Failed       int                `json:"failed"`
	Entries      []models.TimeEntry `json:"entries"`
}

// Process converts up to DefaultBatchSize unprocessed activities into time
// entries under the user's lease. Each activity is an independent unit: a
// failure leaves that activity unprocessed for the next run and the batch
// carries on. Returns lock.ErrHeld unwrapped when another run owns the lease.
func (s *Service) Process(ctx context.Context, userID, companyID string) (ProcessResult, error) {
	lease, err := s.locker.Acquire(ctx, userID)
	if err != nil {
		return ProcessResult{}, err
	}
	defer lease.Release(ctx)

	res := ProcessResult{Entries: []models.TimeEntry{}}

	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return res, apperr.Persistence("load preferences", err)
	}

	acts, err := s.store.ListUnprocessed(ctx, userID, DefaultBatchSize)
	if err != nil {
		return res, apperr.Persistence("list unprocessed", err)
	}
	if len(acts) == 0 {
		return res, nil
	}

	matcher, err := s.buildMatcher(ctx, companyID)
	if err != nil {
		return res, err
	}

	for _, act := range acts {
		// Each activity may spend a full LLM timeout, so the lease is
		// pushed out ahead of every one. Losing it means another run owns
		// the user now; carrying on would double-process the backlog.
		if err := lease.Extend(ctx); err != nil {
			slog.Warn("processing lease lost, ending run early",
				"user", userID, "error", err)
			return res, nil
		}

		suggestion := s.engine.Suggest(ctx, act, matcher, prefs.DescriptionLength)
		if suggestion == nil {
			if err := s.store.MarkProcessed(ctx, userID, []string{act.ID}); err != nil {
				slog.Error("mark skipped activity processed", "activity_id", act.ID, "error", err)
				res.Failed++
				continue
			}
			res.Skipped++
			res.Processed++
			continue
		}

		decision, ok := policy.Filter(*suggestion, prefs, false)
		if !ok {
			if err := s.store.MarkProcessed(ctx, userID, []string{act.ID}); err != nil {
				slog.Error("mark dropped activity processed", "activity_id", act.ID, "error", err)
				res.Failed++
				continue
			}
			res.Skipped++
			res.Processed++
			continue
		}

		entry, err := s.creator.CreateFromDecision(ctx, userID, companyID, decision)
		if err != nil {
			slog.Error("create entry from suggestion",
				"activity_id", act.ID, "error", err)
			res.Failed++
			continue
		}
		res.Created++
		res.Processed++
		if entry.Status == models.StatusApproved {
			res.AutoApproved++
		}
		res.Entries = append(res.Entries, entry)
	}

	if prefs.DeleteRawAfterProcessing {
		if n, err := s.store.ClearRawContent(ctx, userID, s.now()); err != nil {
			slog.Warn("post-processing raw content cleanup failed", "user", userID, "error", err)
		} else if n > 0 {
			slog.Info("raw content cleared after processing", "user", userID, "activities", n)
		}
	}

	slog.Info("processing run finished",
		"user", userID,
		"processed", res.Processed,
		"created", res.Created,
		"auto_approved", res.AutoApproved,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

func (s *Service) buildMatcher(ctx context.Context, companyID string) (*match.Matcher, error) {
	customers, err := s.store.ListCustomers(ctx, companyID)
	if err != nil {
		return nil, apperr.Persistence("list customers", err)
	}
	projects, err := s.store.ListProjects(ctx, companyID)
	if err != nil {
		return nil, apperr.Persistence("list projects", err)
	}
	return match.New(customers, projects), nil
}

// GetPreferences returns the user's preferences, creating defaults on first
// read.
func (s *Service) GetPreferences(ctx context.Context, userID string) (models.AIPreferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return models.AIPreferences{}, apperr.Persistence("load preferences", err)
	}
	return p, nil
}

// UpdatePreferences applies a partial preferences update after validation.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch models.PreferencesPatch) (models.AIPreferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return models.AIPreferences{}, apperr.Persistence("load preferences", err)
	}

	if patch.ConfidenceThreshold != nil {
		t := *patch.ConfidenceThreshold
		if t < 0 || t > 100 {
			return models.AIPreferences{}, apperr.Validation("confidence_threshold must be between 0 and 100, got %d", t)
		}
		p.ConfidenceThreshold = t
	}
	if patch.DescriptionLength != nil {
		if !models.ValidDescriptionLength(*patch.DescriptionLength) {
			return models.AIPreferences{}, apperr.Validation("unknown description_length %q", *patch.DescriptionLength)
		}
		p.DescriptionLength = *patch.DescriptionLength
	}
	if patch.AutoApproveEnabled != nil {
		p.AutoApproveEnabled = *patch.AutoApproveEnabled
	}
	if patch.AllowedDomains != nil {
		p.AllowedDomains = normalizeList(*patch.AllowedDomains)
	}
	if patch.AllowedParticipants != nil {
		p.AllowedParticipants = normalizeList(*patch.AllowedParticipants)
	}
	if patch.DeleteRawAfterProcessing != nil {
		p.DeleteRawAfterProcessing = *patch.DeleteRawAfterProcessing
	}
	if patch.RetentionDays != nil {
		d := *patch.RetentionDays
		if d < models.RetentionIndefinite {
			return models.AIPreferences{}, apperr.Validation("retention_days must be -1 (indefinite) or >= 0, got %d", d)
		}
		p.RetentionDays = d
	}

	if err := s.store.SavePreferences(ctx, p); err != nil {
		return models.AIPreferences{}, apperr.Persistence("save preferences", err)
	}
	return p, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
