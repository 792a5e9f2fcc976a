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

import "github.com/tallyline/autotime/internal/models"

// FallbackConfidence is the fixed confidence assigned to heuristic
// suggestions. It is deliberately low: "unverified, needs manual review".
const FallbackConfidence = 0.2

// Heuristic is the deterministic estimator used whenever the LLM is
// unavailable or its output is unusable. Durations are estimated from
// content length.
func Heuristic(act models.Activity) *models.TimeEntrySuggestion {
	return &models.TimeEntrySuggestion{
		Description:     act.Title,
		DurationMinutes: heuristicDuration(act),
		Category:        defaultCategory(act.Type),
		Confidence:      FallbackConfidence,
		Billable:        true,
		SourceActivity:  &act,
	}
}

// heuristicDuration estimates minutes per activity type:
// email clamp(len/100, 5, 60), meeting provided-or-60,
// document clamp(len/200, 15, 180).
func heuristicDuration(act models.Activity) int {
	length := len(act.Description)
	if length == 0 {
		length = len(act.Title)
	}

	switch act.Type {
	case models.ActivityEmail:
		return clamp(length/100, 5, 60)
	case models.ActivityCalendar:
		if act.DurationMinutes > 0 {
			return act.DurationMinutes
		}
		return 60
	default:
		return clamp(length/200, 15, 180)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
