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

package match

import (
	"math"
	"testing"

	"github.com/tallyline/autotime/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMatch_DomainHit(t *testing.T) {
	m := New([]models.Customer{
		{Name: "Acme Corp", Domain: "acme.com"},
	}, nil)

	r := m.Match(models.Activity{
		Title:        "Contract discussion",
		Participants: []string{"jane@acme.com", "me@myfirm.com"},
	})

	if r.CustomerName != "Acme Corp" {
		t.Fatalf("expected Acme Corp, got %q", r.CustomerName)
	}
	if !almostEqual(r.Confidence, 0.9) {
		t.Errorf("expected confidence 0.9, got %v", r.Confidence)
	}
}

func TestMatch_MultipleDomainHitsBecomeAlternatives(t *testing.T) {
	m := New([]models.Customer{
		{Name: "Acme Corp", Domain: "acme.com"},
		{Name: "Globex", Domain: "globex.io"},
	}, nil)

	r := m.Match(models.Activity{
		Participants: []string{"a@acme.com", "b@globex.io"},
	})

	if r.CustomerName != "Acme Corp" {
		t.Fatalf("first hit should win, got %q", r.CustomerName)
	}
	if len(r.Alternatives) != 1 {
		t.Fatalf("expected one alternative, got %d", len(r.Alternatives))
	}
	if r.Alternatives[0].Name != "Globex" || !almostEqual(r.Alternatives[0].Confidence, 0.8) {
		t.Errorf("expected Globex at 0.8, got %+v", r.Alternatives[0])
	}
}

func TestMatch_KeywordScoring(t *testing.T) {
	m := New(nil, []models.Project{
		{Name: "Apollo", Keywords: []string{"apollo", "launch", "booster"}},
	})

	// Two keyword hits: 2/5 = 0.4.
	r := m.Match(models.Activity{
		Title:       "Apollo launch checklist",
		Description: "Final review before the window closes",
	})
	if r.ProjectName != "Apollo" {
		t.Fatalf("expected Apollo, got %q", r.ProjectName)
	}
	if !almostEqual(r.Confidence, 0.4) {
		t.Errorf("expected 0.4, got %v", r.Confidence)
	}
}

func TestMatch_KeywordScoreCapped(t *testing.T) {
	m := New(nil, []models.Project{
		{Name: "Everything", Keywords: []string{"a1", "b2", "c3", "d4", "e5", "f6"}},
	})

	// Six hits would be 6/5 = 1.2 uncapped.
	r := m.Match(models.Activity{Title: "a1 b2 c3 d4 e5 f6"})
	if !almostEqual(r.Confidence, 0.8) {
		t.Errorf("expected cap at 0.8, got %v", r.Confidence)
	}
}

func TestMatch_KeywordTieKeepsInsertionOrder(t *testing.T) {
	m := New(nil, []models.Project{
		{Name: "First", Keywords: []string{"roadmap"}},
		{Name: "Second", Keywords: []string{"roadmap"}},
	})

	r := m.Match(models.Activity{Title: "Roadmap planning"})
	if r.ProjectName != "First" {
		t.Errorf("tie should keep insertion order, got %q", r.ProjectName)
	}
	if len(r.Alternatives) != 1 || r.Alternatives[0].Name != "Second" {
		t.Errorf("expected Second as alternative, got %+v", r.Alternatives)
	}
}

func TestMatch_DomainBeatsKeywords(t *testing.T) {
	m := New(
		[]models.Customer{{Name: "Acme Corp", Domain: "acme.com"}},
		[]models.Project{{Name: "Apollo", Keywords: []string{"planning"}}},
	)

	r := m.Match(models.Activity{
		Title:        "Planning session",
		Participants: []string{"x@acme.com"},
	})
	if r.CustomerName != "Acme Corp" || r.ProjectName != "" {
		t.Errorf("domain stage should win outright, got %+v", r)
	}
}

func TestMatch_NoRuleHit(t *testing.T) {
	m := New(
		[]models.Customer{{Name: "Acme Corp", Domain: "acme.com"}},
		[]models.Project{{Name: "Apollo", Keywords: []string{"apollo"}}},
	)

	r := m.Match(models.Activity{
		Title:        "Lunch",
		Participants: []string{"friend@gmail.com"},
	})
	if r.Confidence != 0 || r.CustomerName != "" || r.ProjectName != "" {
		t.Errorf("expected empty result, got %+v", r)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Apollo-11 launch, T-minus 10!")
	for _, want := range []string{"apollo", "11", "launch", "minus", "10"} {
		if !tokens[want] {
			t.Errorf("expected token %q", want)
		}
	}
	if tokens["t"] {
		t.Error("single-character tokens should be dropped")
	}
}
