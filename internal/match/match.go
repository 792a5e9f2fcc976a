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

// Package match implements the rule-based customer/project matcher that runs
// before the LLM. A domain or keyword hit here is cheap and high-signal, so
// a confident match short-circuits the classifier entirely.
package match

import (
	"sort"
	"strings"

	"github.com/tallyline/autotime/internal/models"
)

// Scoring constants for the two rule stages.
const (
	domainConfidence    = 0.9
	domainAltConfidence = 0.8
	keywordCap          = 0.8
	keywordAltCap       = 0.7
	keywordDivisor      = 5.0
)

// Alternative is a lower-ranked candidate match.
type Alternative struct {
	Name       string
	Confidence float64
}

// Result is the outcome of rule-based matching. Confidence 0 means no rule
// produced a candidate.
type Result struct {
	CustomerName string
	ProjectName  string
	Confidence   float64
	Alternatives []Alternative
}

// Matcher associates activities with known customers (by participant email
// domain) and projects (by keyword overlap).
type Matcher struct {
	customers []models.Customer
	projects  []models.Project
}

// New creates a matcher over the company's customers and projects. Project
// slice order is preserved for stable tie-breaking.
func New(customers []models.Customer, projects []models.Project) *Matcher {
	return &Matcher{customers: customers, projects: projects}
}

// Match runs the rule stages in order: exact customer-domain match first,
// then project keyword scoring, else no match.
func (m *Matcher) Match(act models.Activity) Result {
	if r, ok := m.matchDomain(act); ok {
		return r
	}
	if r, ok := m.matchKeywords(act); ok {
		return r
	}
	return Result{}
}

// matchDomain compares participant email domains against customer domains.
// The first hit wins at 0.9; remaining domain hits become 0.8 alternatives.
func (m *Matcher) matchDomain(act models.Activity) (Result, bool) {
	domains := make(map[string]bool)
	for _, p := range act.Participants {
		if d := emailDomain(p); d != "" {
			domains[d] = true
		}
	}
	if len(domains) == 0 {
		return Result{}, false
	}

	var hits []models.Customer
	for _, c := range m.customers {
		if domains[strings.ToLower(c.Domain)] {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return Result{}, false
	}

	r := Result{
		CustomerName: hits[0].Name,
		Confidence:   domainConfidence,
	}
	for _, c := range hits[1:] {
		r.Alternatives = append(r.Alternatives, Alternative{
			Name:       c.Name,
			Confidence: domainAltConfidence,
		})
	}
	return r, true
}

// matchKeywords tokenises the activity text and scores each project by
// keyword-set intersection. Ties keep project insertion order.
func (m *Matcher) matchKeywords(act models.Activity) (Result, bool) {
	tokens := Tokenize(act.Title + " " + act.Description)
	if len(tokens) == 0 {
		return Result{}, false
	}

	type scored struct {
		project models.Project
		count   int
	}
	var candidates []scored
	for _, p := range m.projects {
		count := 0
		for _, kw := range p.Keywords {
			if tokens[strings.ToLower(kw)] {
				count++
			}
		}
		if count > 0 {
			candidates = append(candidates, scored{project: p, count: count})
		}
	}
	if len(candidates) == 0 {
		return Result{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].count > candidates[j].count
	})

	top := candidates[0]
	r := Result{
		ProjectName: top.project.Name,
		Confidence:  keywordScore(top.count, keywordCap),
	}
	for _, c := range candidates[1:] {
		r.Alternatives = append(r.Alternatives, Alternative{
			Name:       c.project.Name,
			Confidence: keywordScore(c.count, keywordAltCap),
		})
	}
	return r, true
}

func keywordScore(count int, cap float64) float64 {
	score := float64(count) / keywordDivisor
	if score > cap {
		return cap
	}
	return score
}

// Tokenize lowercases text and splits it into a set of alphanumeric tokens.
func Tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(t) > 1 {
			tokens[t] = true
		}
	}
	return tokens
}

// emailDomain extracts the lowercase domain from an email address, or ""
// if the string is not an address.
func emailDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
