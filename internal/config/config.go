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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TenantConfig holds source-sync credentials for a single tenant.
type TenantConfig struct {
	Alias        string `yaml:"alias"`
	Provider     string `yaml:"provider"` // "m365" or "google" (future)
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Config holds all configuration for the autotime service.
type Config struct {
	Tenants []TenantConfig

	// Storage
	DatabaseURL string
	RedisURL    string

	// LLM classifier
	GeminiAPIKey    string
	GeminiModel     string
	LLMTimeout      time.Duration
	LLMMaxOutTokens int

	// Processing
	ProcessLockTTL time.Duration
	SyncLookback   time.Duration

	// Server
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Tenants []struct {
		Alias        string `yaml:"alias"`
		Provider     string `yaml:"provider"`
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"tenants"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:     firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "postgres://localhost:5432/autotime")),
		RedisURL:        firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		GeminiAPIKey:    firstNonEmpty(raw.Gemini.APIKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:     firstNonEmpty(raw.Gemini.Model, envOrDefault("GEMINI_MODEL", "gemini-2.0-flash")),
		LLMTimeout:      envOrDefaultDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxOutTokens: envOrDefaultInt("LLM_MAX_OUTPUT_TOKENS", 1024),
		ProcessLockTTL:  envOrDefaultDuration("PROCESS_LOCK_TTL", 5*time.Minute),
		SyncLookback:    envOrDefaultDuration("SYNC_LOOKBACK", 72*time.Hour),
		Port:            envOrDefaultInt("PORT", 8080),
	}

	// Build tenant configs
	for _, t := range raw.Tenants {
		tc := TenantConfig{
			Alias:        t.Alias,
			Provider:     t.Provider,
			TenantID:     t.TenantID,
			ClientID:     t.ClientID,
			ClientSecret: t.ClientSecret,
		}

		// Skip tenants with empty credentials (commented out in YAML)
		if tc.TenantID == "" || tc.ClientID == "" || tc.ClientSecret == "" {
			continue
		}

		if tc.Alias == "" {
			tc.Alias = tc.TenantID[:8] // Use first 8 chars of tenant ID as fallback
		}

		if tc.Provider == "" {
			tc.Provider = "m365"
		}

		cfg.Tenants = append(cfg.Tenants, tc)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
