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

import "testing"

func TestParseResponse_BareObject(t *testing.T) {
	v, skip, err := parseResponse(`{
		"description": "Drafted contract amendments",
		"duration_minutes": 45,
		"category": "Legal",
		"confidence": 0.85,
		"billable": true,
		"customer_name": "Acme Corp"
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip {
		t.Fatal("unexpected skip")
	}
	if v.Description != "Drafted contract amendments" || v.DurationMinutes != 45 {
		t.Errorf("wrong fields: %+v", v)
	}
	if v.Category != "legal" {
		t.Errorf("category should be lowercased, got %q", v.Category)
	}
	if v.CustomerName != "Acme Corp" {
		t.Errorf("customer lost: %q", v.CustomerName)
	}
}

func TestParseResponse_MarkdownFencedArray(t *testing.T) {
	text := "Here is the classification:\n```json\n[{\"description\":\"Team standup\",\"duration_minutes\":15,\"category\":\"meeting\",\"confidence\":0.7}]\n```"
	v, skip, err := parseResponse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip {
		t.Fatal("unexpected skip")
	}
	if v.Description != "Team standup" || v.DurationMinutes != 15 {
		t.Errorf("wrong fields: %+v", v)
	}
	if !v.Billable {
		t.Error("billable should default to true")
	}
}

func TestParseResponse_EmptyArrayMeansSkip(t *testing.T) {
	_, skip, err := parseResponse("The activity is personal.\n[]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !skip {
		t.Error("empty array should signal skip")
	}
}

func TestParseResponse_FailsClosed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"no JSON at all", "I could not classify this activity."},
		{"missing description", `{"duration_minutes":30,"category":"email","confidence":0.5}`},
		{"blank description", `{"description":"  ","duration_minutes":30,"category":"email","confidence":0.5}`},
		{"missing duration", `{"description":"x","category":"email","confidence":0.5}`},
		{"zero duration", `{"description":"x","duration_minutes":0,"category":"email","confidence":0.5}`},
		{"absurd duration", `{"description":"x","duration_minutes":2000,"category":"email","confidence":0.5}`},
		{"missing category", `{"description":"x","duration_minutes":30,"confidence":0.5}`},
		{"missing confidence", `{"description":"x","duration_minutes":30,"category":"email"}`},
		{"confidence above one", `{"description":"x","duration_minutes":30,"category":"email","confidence":1.5}`},
		{"confidence negative", `{"description":"x","duration_minutes":30,"category":"email","confidence":-0.1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := parseResponse(tc.text); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseResponse_SkipsLeadingNonJSONBrace(t *testing.T) {
	// Braces in prose before the real payload must not derail extraction.
	text := `classification {incomplete follows: {"description":"Wrote report","duration_minutes":60,"category":"documentation","confidence":0.6}`
	v, skip, err := parseResponse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip || v.Description != "Wrote report" {
		t.Errorf("wrong result: skip=%v %+v", skip, v)
	}
}
