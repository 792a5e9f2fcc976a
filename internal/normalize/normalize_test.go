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

package normalize

import (
	"testing"
	"time"

	"github.com/tallyline/autotime/internal/apperr"
	"github.com/tallyline/autotime/internal/models"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestActivity_RejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		raw  models.RawActivity
	}{
		{"missing title", models.RawActivity{Type: "email", Source: "m365"}},
		{"blank title", models.RawActivity{Type: "email", Title: "   ", Source: "m365"}},
		{"missing source", models.RawActivity{Type: "email", Title: "Quarterly update"}},
		{"unknown type", models.RawActivity{Type: "phone_call", Title: "Call", Source: "manual"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Activity(tc.raw, "user-1", testNow)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestActivity_TypeCaseInsensitive(t *testing.T) {
	act, err := Activity(models.RawActivity{
		Type: " Calendar ", Title: "Standup", Source: "m365",
	}, "user-1", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.Type != models.ActivityCalendar {
		t.Errorf("expected calendar, got %s", act.Type)
	}
}

func TestActivity_DefaultsStartToIngestionTime(t *testing.T) {
	act, err := Activity(models.RawActivity{
		Type: "email", Title: "Re: contract", Source: "m365",
	}, "user-1", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !act.StartTime.Equal(testNow) {
		t.Errorf("expected start %v, got %v", testNow, act.StartTime)
	}
}

func TestActivity_DerivesDurationFromWindow(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	act, err := Activity(models.RawActivity{
		Type: "calendar", Title: "Design review", Source: "m365",
		StartTime: &start, EndTime: &end,
	}, "user-1", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.DurationMinutes != 45 {
		t.Errorf("expected 45 minutes, got %d", act.DurationMinutes)
	}
}

func TestActivity_DurationFloorsAtOneMinute(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)

	act, err := Activity(models.RawActivity{
		Type: "calendar", Title: "Quick sync", Source: "m365",
		StartTime: &start, EndTime: &end,
	}, "user-1", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.DurationMinutes != 1 {
		t.Errorf("expected floor of 1 minute, got %d", act.DurationMinutes)
	}
}

func TestActivity_NormalisesParticipants(t *testing.T) {
	act, err := Activity(models.RawActivity{
		Type: "email", Title: "Kickoff", Source: "m365",
		Participants: []string{" Alice@Acme.COM ", "", "bob@acme.com"},
	}, "user-1", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"alice@acme.com", "bob@acme.com"}
	if len(act.Participants) != len(want) {
		t.Fatalf("expected %d participants, got %d", len(want), len(act.Participants))
	}
	for i := range want {
		if act.Participants[i] != want[i] {
			t.Errorf("participant %d: expected %q, got %q", i, want[i], act.Participants[i])
		}
	}
}

func TestActivity_SetsFingerprintAndIdentity(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	a, err := Activity(models.RawActivity{
		Type: "calendar", Title: "Standup", Source: "m365", StartTime: &start,
	}, "user-1", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Activity(models.RawActivity{
		Type: "calendar", Title: "Standup", Source: "m365", StartTime: &start,
	}, "user-1", testNow)

	if a.ContentHash == "" {
		t.Fatal("content hash not set")
	}
	if a.ContentHash != b.ContentHash {
		t.Error("same payload should produce the same fingerprint")
	}
	if a.ID == b.ID {
		t.Error("each normalisation should mint a fresh ID")
	}
	if a.UserID != "user-1" {
		t.Errorf("owner not set: %q", a.UserID)
	}
}
