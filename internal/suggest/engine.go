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

// Package suggest produces zero or one time-entry suggestion per activity.
//
// The engine is a two-stage strategy: the cheap rule-based matcher runs
// first and a confident hit bypasses the LLM entirely; otherwise the LLM
// classifies the activity and a deterministic heuristic covers every way
// the LLM can fail. LLM trouble degrades confidence — it never becomes an
// error of the batch.
package suggest

import (
	"context"
	"log/slog"

	"github.com/tallyline/autotime/internal/llm"
	"github.com/tallyline/autotime/internal/match"
	"github.com/tallyline/autotime/internal/models"
)

// BypassConfidence is the rule-match confidence above which the LLM call is
// skipped and the rule result is accepted outright.
const BypassConfidence = 0.8

// Engine turns unprocessed activities into suggestions.
type Engine struct {
	completer llm.Completer
}

// NewEngine creates a suggestion engine over the given completion service.
// A nil completer is allowed; every activity then takes the heuristic path.
func NewEngine(completer llm.Completer) *Engine {
	return &Engine{completer: completer}
}

// Suggest produces at most one suggestion for the activity. A nil result
// with nil error means the activity is not billable work (e.g. personal
// content) and should be skipped without creating an entry.
func (e *Engine) Suggest(
	ctx context.Context,
	act models.Activity,
	matcher *match.Matcher,
	descLen models.DescriptionLength,
) *models.TimeEntrySuggestion {
	ruleMatch := matcher.Match(act)

	// Cost-saving short-circuit: a confident rule match needs no LLM.
	if ruleMatch.Confidence > BypassConfidence {
		slog.Debug("rule match bypassed LLM",
			"activity_id", act.ID,
			"customer", ruleMatch.CustomerName,
			"confidence", ruleMatch.Confidence,
		)
		return fromRuleMatch(act, ruleMatch)
	}

	if e.completer == nil {
		return Heuristic(act)
	}

	prompt := buildPrompt(act, ruleMatch, descLen)
	text, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("LLM completion failed, using heuristic fallback",
			"activity_id", act.ID,
			"error", err,
		)
		return Heuristic(act)
	}

	parsed, skip, err := parseResponse(text)
	if err != nil {
		slog.Warn("LLM response unusable, using heuristic fallback",
			"activity_id", act.ID,
			"error", err,
		)
		return Heuristic(act)
	}
	if skip {
		slog.Debug("LLM excluded activity", "activity_id", act.ID)
		return nil
	}

	s := &models.TimeEntrySuggestion{
		Description:     parsed.Description,
		DurationMinutes: parsed.DurationMinutes,
		Category:        parsed.Category,
		Confidence:      parsed.Confidence,
		CustomerName:    parsed.CustomerName,
		Billable:        parsed.Billable,
		SourceActivity:  &act,
	}
	if s.CustomerName == "" {
		s.CustomerName = ruleMatch.CustomerName
	}
	return s
}

// fromRuleMatch builds a suggestion directly from a confident rule match.
func fromRuleMatch(act models.Activity, r match.Result) *models.TimeEntrySuggestion {
	duration := act.DurationMinutes
	if duration <= 0 {
		duration = heuristicDuration(act)
	}
	return &models.TimeEntrySuggestion{
		Description:     act.Title,
		DurationMinutes: duration,
		Category:        defaultCategory(act.Type),
		Confidence:      r.Confidence,
		CustomerName:    r.CustomerName,
		Billable:        true,
		SourceActivity:  &act,
	}
}

func defaultCategory(t models.ActivityType) string {
	switch t {
	case models.ActivityCalendar:
		return "meeting"
	case models.ActivityEmail:
		return "email"
	default:
		return "documentation"
	}
}
