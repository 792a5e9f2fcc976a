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

package suggest

import (
	"strings"
	"testing"

	"github.com/tallyline/autotime/internal/models"
)

func TestHeuristicDuration_Email(t *testing.T) {
	cases := []struct {
		name    string
		bodyLen int
		want    int
	}{
		{"short email floors at 5", 120, 5},
		{"1000 chars is 10 minutes", 1000, 10},
		{"huge email caps at 60", 50000, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			act := models.Activity{
				Type:        models.ActivityEmail,
				Title:       "Re: proposal",
				Description: strings.Repeat("x", tc.bodyLen),
			}
			if got := heuristicDuration(act); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestHeuristicDuration_Calendar(t *testing.T) {
	withDuration := models.Activity{Type: models.ActivityCalendar, DurationMinutes: 25}
	if got := heuristicDuration(withDuration); got != 25 {
		t.Errorf("expected event duration 25, got %d", got)
	}

	withoutDuration := models.Activity{Type: models.ActivityCalendar, Title: "Sync"}
	if got := heuristicDuration(withoutDuration); got != 60 {
		t.Errorf("expected default 60, got %d", got)
	}
}

func TestHeuristicDuration_Document(t *testing.T) {
	short := models.Activity{Type: models.ActivityDocument, Title: "Notes"}
	if got := heuristicDuration(short); got != 15 {
		t.Errorf("expected floor 15, got %d", got)
	}

	long := models.Activity{
		Type:        models.ActivityDocument,
		Description: strings.Repeat("x", 10000),
	}
	if got := heuristicDuration(long); got != 50 {
		t.Errorf("expected 10000/200=50, got %d", got)
	}
}

func TestHeuristicDuration_FallsBackToTitleLength(t *testing.T) {
	act := models.Activity{
		Type:  models.ActivityEmail,
		Title: strings.Repeat("t", 3000), // no description
	}
	if got := heuristicDuration(act); got != 30 {
		t.Errorf("expected 3000/100=30 from title length, got %d", got)
	}
}

func TestHeuristic_Shape(t *testing.T) {
	act := models.Activity{
		ID:    "act-9",
		Type:  models.ActivityEmail,
		Title: "Re: invoice",
	}
	s := Heuristic(act)
	if s.Description != "Re: invoice" {
		t.Errorf("description should be the title, got %q", s.Description)
	}
	if s.Category != "email" {
		t.Errorf("expected email category, got %q", s.Category)
	}
	if s.Confidence != FallbackConfidence {
		t.Errorf("expected %v, got %v", FallbackConfidence, s.Confidence)
	}
	if !s.Billable {
		t.Error("heuristic suggestions default to billable")
	}
	if s.SourceActivity == nil || s.SourceActivity.ID != "act-9" {
		t.Error("source activity not attached")
	}
}
