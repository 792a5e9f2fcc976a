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

// Package policy gates suggestions against the owning user's preferences
// before anything is persisted. Dropped suggestions are skipped silently;
// survivors carry the auto-approval decision for the lifecycle manager.
package policy

import (
	"strings"

	"github.com/tallyline/autotime/internal/models"
)

// promotionalSkipConfidence: promotional content at or below this confidence
// is an implicit skip, never silently promoted to an entry.
const promotionalSkipConfidence = 0.3

// Decision annotates a suggestion that passed the filter.
type Decision struct {
	Suggestion  models.TimeEntrySuggestion
	AutoApprove bool
}

// Filter applies the user's preferences to a suggestion. The second return
// is false when the suggestion must be dropped. requireAutoApprove makes
// the caller's threshold hard: anything below it is dropped instead of
// landing in pending review.
func Filter(s models.TimeEntrySuggestion, prefs models.AIPreferences, requireAutoApprove bool) (Decision, bool) {
	// Personal content is excluded entirely.
	if s.Confidence <= 0 || isCategory(s.Category, "personal") {
		return Decision{}, false
	}

	// Promotional/marketing content at low confidence is an implicit skip.
	if isPromotional(s.Category) && s.Confidence <= promotionalSkipConfidence {
		return Decision{}, false
	}

	if !participantsAllowed(s.SourceActivity, prefs) {
		return Decision{}, false
	}

	meetsThreshold := s.Confidence*100 >= float64(prefs.ConfidenceThreshold)
	if requireAutoApprove && !meetsThreshold {
		return Decision{}, false
	}

	return Decision{
		Suggestion:  s,
		AutoApprove: meetsThreshold && prefs.AutoApproveEnabled,
	}, true
}

// participantsAllowed checks the activity's participants against an enabled
// allow-list. With no allow-list configured, everything passes. With one
// configured, every participant must match by domain or full address —
// activities touching unlisted parties stay out of the pipeline.
func participantsAllowed(act *models.Activity, prefs models.AIPreferences) bool {
	if act == nil || len(act.Participants) == 0 {
		return true
	}
	if len(prefs.AllowedDomains) == 0 && len(prefs.AllowedParticipants) == 0 {
		return true
	}

	domains := make(map[string]bool, len(prefs.AllowedDomains))
	for _, d := range prefs.AllowedDomains {
		domains[strings.ToLower(d)] = true
	}
	addrs := make(map[string]bool, len(prefs.AllowedParticipants))
	for _, a := range prefs.AllowedParticipants {
		addrs[strings.ToLower(a)] = true
	}

	for _, p := range act.Participants {
		p = strings.ToLower(p)
		if addrs[p] {
			continue
		}
		at := strings.LastIndex(p, "@")
		if at >= 0 && domains[p[at+1:]] {
			continue
		}
		return false
	}
	return true
}

func isCategory(category, want string) bool {
	return strings.Contains(strings.ToLower(category), want)
}

func isPromotional(category string) bool {
	return isCategory(category, "promotional") || isCategory(category, "marketing")
}
