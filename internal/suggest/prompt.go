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
	"fmt"
	"strings"
	"time"

	"github.com/tallyline/autotime/internal/match"
	"github.com/tallyline/autotime/internal/models"
)

// buildPrompt assembles the classification prompt: activity fields, explicit
// inclusion/exclusion rules, the confidence taxonomy the model must follow,
// and the required output schema.
func buildPrompt(act models.Activity, ruleMatch match.Result, descLen models.DescriptionLength) string {
	var b strings.Builder

	b.WriteString("You classify a workplace activity as billable work and propose a time entry.\n\n")

	b.WriteString("ACTIVITY\n")
	fmt.Fprintf(&b, "type: %s\n", act.Type)
	fmt.Fprintf(&b, "title: %s\n", act.Title)
	if act.Description != "" {
		fmt.Fprintf(&b, "description: %s\n", act.Description)
	}
	fmt.Fprintf(&b, "start_time: %s\n", act.StartTime.Format(time.RFC3339))
	if act.EndTime != nil {
		fmt.Fprintf(&b, "end_time: %s\n", act.EndTime.Format(time.RFC3339))
	}
	if act.DurationMinutes > 0 {
		fmt.Fprintf(&b, "duration_minutes: %d\n", act.DurationMinutes)
	}
	if len(act.Participants) > 0 {
		fmt.Fprintf(&b, "participants: %s\n", strings.Join(act.Participants, ", "))
	}
	fmt.Fprintf(&b, "source: %s\n", act.Source)

	if ruleMatch.Confidence > 0 {
		b.WriteString("\nRULE-BASED HINTS (unconfirmed)\n")
		if ruleMatch.CustomerName != "" {
			fmt.Fprintf(&b, "candidate customer: %s (%.2f)\n", ruleMatch.CustomerName, ruleMatch.Confidence)
		}
		if ruleMatch.ProjectName != "" {
			fmt.Fprintf(&b, "candidate project: %s (%.2f)\n", ruleMatch.ProjectName, ruleMatch.Confidence)
		}
		for _, alt := range ruleMatch.Alternatives {
			fmt.Fprintf(&b, "alternative: %s (%.2f)\n", alt.Name, alt.Confidence)
		}
	}

	b.WriteString(`
RULES
- Include only real billable work: client meetings, customer correspondence,
  authored documents, project work.
- Exclude personal content entirely: respond with an empty array [].
- Marketing, promotional and automated bulk content is not billable work;
  if you report it at all, its confidence must be 0.30 or lower.

CONFIDENCE SCORING
- client meeting or call: 0.85-0.95
- direct customer email you authored: 0.75-0.90
- internal team meeting: 0.70-0.85
- work email reply: 0.60-0.80
- marketing/promotional content: at most 0.30
- personal content: exclude (empty array)
`)

	switch descLen {
	case models.DescriptionBrief:
		b.WriteString("\nKeep description under 10 words.\n")
	case models.DescriptionDetailed:
		b.WriteString("\nWrite a detailed 2-3 sentence description.\n")
	default:
		b.WriteString("\nWrite a one-sentence description.\n")
	}

	b.WriteString(`
OUTPUT
Respond with ONLY a JSON array containing zero or one object:
[{"description": string, "duration_minutes": integer, "category": string,
"confidence": number 0-1, "billable": boolean, "customer_name": string or omitted}]
No markdown, no commentary.
`)

	return b.String()
}
