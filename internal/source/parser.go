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

package source

import (
	"time"

	"github.com/tallyline/autotime/internal/models"
)

// SourceName identifies this connector in activity records and fingerprints.
const SourceName = "m365"

// graphEvent is the subset of a Graph calendar event we use.
type graphEvent struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	BodyPreview string `json:"bodyPreview"`
	Start       struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	} `json:"end"`
	Attendees []struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"attendees"`
	Organizer struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"organizer"`
}

// graphMessage is the subset of a Graph mail message we use.
type graphMessage struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	BodyPreview  string `json:"bodyPreview"`
	SentDateTime string `json:"sentDateTime"`
	ToRecipients []struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"toRecipients"`
	CcRecipients []struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"ccRecipients"`
}

func eventToActivity(ev graphEvent) models.RawActivity {
	start := parseGraphTime(ev.Start.DateTime)
	end := parseGraphTime(ev.End.DateTime)

	participants := make([]string, 0, len(ev.Attendees)+1)
	if ev.Organizer.EmailAddress.Address != "" {
		participants = append(participants, ev.Organizer.EmailAddress.Address)
	}
	for _, a := range ev.Attendees {
		if a.EmailAddress.Address != "" {
			participants = append(participants, a.EmailAddress.Address)
		}
	}

	return models.RawActivity{
		Type:         string(models.ActivityCalendar),
		Title:        ev.Subject,
		Description:  ev.BodyPreview,
		StartTime:    start,
		EndTime:      end,
		Participants: participants,
		Source:       SourceName,
		Metadata:     map[string]string{"graph_id": ev.ID},
	}
}

func messageToActivity(msg graphMessage) models.RawActivity {
	sent := parseGraphTime(msg.SentDateTime)

	var participants []string
	for _, r := range msg.ToRecipients {
		if r.EmailAddress.Address != "" {
			participants = append(participants, r.EmailAddress.Address)
		}
	}
	for _, r := range msg.CcRecipients {
		if r.EmailAddress.Address != "" {
			participants = append(participants, r.EmailAddress.Address)
		}
	}

	return models.RawActivity{
		Type:         string(models.ActivityEmail),
		Title:        msg.Subject,
		Description:  msg.BodyPreview,
		StartTime:    sent,
		Participants: participants,
		Source:       SourceName,
		Metadata:     map[string]string{"graph_id": msg.ID},
	}
}

// parseGraphTime handles both RFC 3339 timestamps and Graph's zone-less
// dateTime strings (calendar events come back without an offset).
func parseGraphTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
