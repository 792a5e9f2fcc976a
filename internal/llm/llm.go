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

// Package llm wraps the completion service used by the suggestion engine.
// The contract is deliberately thin: a prompt goes in, text comes out, and
// the response may contain JSON somewhere in it. Transport errors, timeouts
// and garbage output are all recovered by the caller's fallback heuristic.
package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiClient is the production Completer backed by the Gemini API.
// Sampling is near-deterministic and output is token-bounded: the engine
// wants a small JSON classification, not prose.
type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	timeout         time.Duration
}

// GeminiConfig holds the Gemini client settings.
type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
}

// NewGemini creates a Gemini-backed completer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		model:           model,
		maxOutputTokens: int32(maxTokens),
		timeout:         timeout,
	}, nil
}

// Complete sends the prompt and returns the raw response text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.1),
			MaxOutputTokens: c.maxOutputTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
