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

package policy

import (
	"testing"

	"github.com/tallyline/autotime/internal/models"
)

func baseSuggestion() models.TimeEntrySuggestion {
	return models.TimeEntrySuggestion{
		Description:     "Reviewed contract",
		DurationMinutes: 30,
		Category:        "email",
		Confidence:      0.75,
		Billable:        true,
	}
}

func basePrefs() models.AIPreferences {
	return models.DefaultPreferences("user-1")
}

func TestFilter_PassesOrdinaryWork(t *testing.T) {
	d, ok := Filter(baseSuggestion(), basePrefs(), false)
	if !ok {
		t.Fatal("expected suggestion to pass")
	}
	if d.AutoApprove {
		t.Error("0.75 is below the default 80 threshold, no auto-approve")
	}
}

func TestFilter_DropsPersonal(t *testing.T) {
	s := baseSuggestion()
	s.Category = "Personal errand"
	if _, ok := Filter(s, basePrefs(), false); ok {
		t.Error("personal content must be dropped")
	}
}

func TestFilter_DropsZeroConfidence(t *testing.T) {
	s := baseSuggestion()
	s.Confidence = 0
	if _, ok := Filter(s, basePrefs(), false); ok {
		t.Error("zero-confidence suggestions must be dropped")
	}
}

func TestFilter_PromotionalLowConfidenceDropped(t *testing.T) {
	s := baseSuggestion()
	s.Category = "promotional"
	s.Confidence = 0.3
	if _, ok := Filter(s, basePrefs(), false); ok {
		t.Error("promotional at 0.3 must be dropped")
	}

	// Above the promotional ceiling it survives to pending review.
	s.Confidence = 0.5
	if _, ok := Filter(s, basePrefs(), false); !ok {
		t.Error("promotional above 0.3 should pass to review")
	}
}

func TestFilter_AutoApproveNeedsThresholdAndOptIn(t *testing.T) {
	s := baseSuggestion()
	s.Confidence = 0.85

	prefs := basePrefs() // threshold 80, auto-approve off
	d, ok := Filter(s, prefs, false)
	if !ok || d.AutoApprove {
		t.Error("auto-approve requires the user opt-in")
	}

	prefs.AutoApproveEnabled = true
	d, ok = Filter(s, prefs, false)
	if !ok || !d.AutoApprove {
		t.Error("0.85 with threshold 80 and opt-in should auto-approve")
	}

	prefs.ConfidenceThreshold = 90
	d, ok = Filter(s, prefs, false)
	if !ok || d.AutoApprove {
		t.Error("0.85 below threshold 90 must not auto-approve")
	}
}

func TestFilter_ThresholdBoundaryInclusive(t *testing.T) {
	s := baseSuggestion()
	s.Confidence = 0.80
	prefs := basePrefs()
	prefs.AutoApproveEnabled = true

	d, ok := Filter(s, prefs, false)
	if !ok || !d.AutoApprove {
		t.Error("confidence exactly at the threshold should auto-approve")
	}
}

func TestFilter_RequireAutoApproveDropsBelowThreshold(t *testing.T) {
	s := baseSuggestion()
	s.Confidence = 0.5
	if _, ok := Filter(s, basePrefs(), true); ok {
		t.Error("below-threshold suggestion must be dropped in strict mode")
	}
}

func TestFilter_AllowListByDomain(t *testing.T) {
	prefs := basePrefs()
	prefs.AllowedDomains = []string{"acme.com"}

	s := baseSuggestion()
	s.SourceActivity = &models.Activity{
		Participants: []string{"jane@acme.com", "bob@acme.com"},
	}
	if _, ok := Filter(s, prefs, false); !ok {
		t.Error("all participants on an allowed domain should pass")
	}

	s.SourceActivity.Participants = append(s.SourceActivity.Participants, "spy@evil.org")
	if _, ok := Filter(s, prefs, false); ok {
		t.Error("one unlisted participant must fail the allow-list")
	}
}

func TestFilter_AllowListByAddress(t *testing.T) {
	prefs := basePrefs()
	prefs.AllowedParticipants = []string{"partner@consultancy.io"}

	s := baseSuggestion()
	s.SourceActivity = &models.Activity{
		Participants: []string{"partner@consultancy.io"},
	}
	if _, ok := Filter(s, prefs, false); !ok {
		t.Error("explicitly allowed address should pass")
	}
}

func TestFilter_NoAllowListMeansOpen(t *testing.T) {
	s := baseSuggestion()
	s.SourceActivity = &models.Activity{
		Participants: []string{"anyone@anywhere.net"},
	}
	if _, ok := Filter(s, basePrefs(), false); !ok {
		t.Error("without an allow-list every participant passes")
	}
}
