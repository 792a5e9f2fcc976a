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
	"encoding/json"
	"fmt"
	"strings"
)

// llmSuggestion is the schema the LLM must produce. Pointer fields let
// validation distinguish "missing" from zero values: any missing or
// mistyped required field fails closed to the heuristic.
type llmSuggestion struct {
	Description     *string  `json:"description"`
	DurationMinutes *int     `json:"duration_minutes"`
	Category        *string  `json:"category"`
	Confidence      *float64 `json:"confidence"`
	Billable        *bool    `json:"billable"`
	CustomerName    string   `json:"customer_name"`
}

// validated is a fully-checked suggestion payload.
type validated struct {
	Description     string
	DurationMinutes int
	Category        string
	Confidence      float64
	Billable        bool
	CustomerName    string
}

const maxDurationMinutes = 24 * 60

// parseResponse extracts the first well-formed JSON value from the response
// text and validates it. skip=true means the model returned an empty array,
// i.e. the activity is excluded.
func parseResponse(text string) (validated, bool, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return validated{}, false, err
	}

	// Accept either a bare object or a zero/one element array.
	var candidate json.RawMessage
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return validated{}, false, fmt.Errorf("decode suggestion array: %w", err)
		}
		if len(arr) == 0 {
			return validated{}, true, nil
		}
		candidate = arr[0]
	} else {
		candidate = raw
	}

	var s llmSuggestion
	dec := json.NewDecoder(strings.NewReader(string(candidate)))
	if err := dec.Decode(&s); err != nil {
		return validated{}, false, fmt.Errorf("decode suggestion object: %w", err)
	}

	switch {
	case s.Description == nil || strings.TrimSpace(*s.Description) == "":
		return validated{}, false, fmt.Errorf("missing description")
	case s.DurationMinutes == nil:
		return validated{}, false, fmt.Errorf("missing duration_minutes")
	case *s.DurationMinutes < 1 || *s.DurationMinutes > maxDurationMinutes:
		return validated{}, false, fmt.Errorf("duration_minutes %d out of range", *s.DurationMinutes)
	case s.Category == nil || strings.TrimSpace(*s.Category) == "":
		return validated{}, false, fmt.Errorf("missing category")
	case s.Confidence == nil:
		return validated{}, false, fmt.Errorf("missing confidence")
	case *s.Confidence < 0 || *s.Confidence > 1:
		return validated{}, false, fmt.Errorf("confidence %v out of range", *s.Confidence)
	}

	billable := true
	if s.Billable != nil {
		billable = *s.Billable
	}

	return validated{
		Description:     strings.TrimSpace(*s.Description),
		DurationMinutes: *s.DurationMinutes,
		Category:        strings.ToLower(strings.TrimSpace(*s.Category)),
		Confidence:      *s.Confidence,
		Billable:        billable,
		CustomerName:    strings.TrimSpace(s.CustomerName),
	}, false, nil
}

// extractJSON returns the first well-formed JSON array or object found in
// the text. The LLM contract is loose — the response "may contain JSON
// somewhere", wrapped in markdown fences or prose.
func extractJSON(text string) (json.RawMessage, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("no JSON value found in response (%d bytes)", len(text))
}
