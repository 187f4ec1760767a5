// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		c := defaultConfig()
		fn(c)
		return c
	}

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"defaults", defaultConfig(), false},
		{"bad port", mutate(func(c *Config) { c.Server.Port = 0 }), true},
		{"missing ratings path", mutate(func(c *Config) { c.Dataset.RatingsPath = "" }), true},
		{"inverted scale", mutate(func(c *Config) { c.Dataset.ScaleMin = 5; c.Dataset.ScaleMax = 1 }), true},
		{"zero workers", mutate(func(c *Config) { c.Recommend.Workers = 0 }), true},
		{"top_k above max", mutate(func(c *Config) { c.Recommend.DefaultTopK = 500 }), true},
		{"negative profiles", mutate(func(c *Config) { c.Attack.Profiles = -1 }), true},
		{"zero attack is valid", mutate(func(c *Config) { c.Attack.Profiles = 0; c.Attack.Fillers = 0 }), false},
		{"clip factor above one", mutate(func(c *Config) { c.Defense.ClipFactor = 1.5 }), true},
		{"extreme share above one", mutate(func(c *Config) { c.Defense.MinExtremeShare = 2 }), true},
		{"zero sample size", mutate(func(c *Config) { c.Eval.SampleSize = 0 }), true},
		{"rate limit off ignores reqs", mutate(func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9100
attack:
  profiles: 10
defense:
  clip_factor: 0.25
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("ATTACK_PROFILES", "7")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SOME_RANDOM_VAR", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// File overrides defaults.
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 from file", cfg.Server.Port)
	}
	if cfg.Defense.ClipFactor != 0.25 {
		t.Errorf("Defense.ClipFactor = %v, want 0.25 from file", cfg.Defense.ClipFactor)
	}

	// Env overrides file.
	if cfg.Attack.Profiles != 7 {
		t.Errorf("Attack.Profiles = %d, want 7 from env", cfg.Attack.Profiles)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from env", cfg.Logging.Level)
	}

	// Comma-separated env slices are split.
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != "http://a.test" {
		t.Errorf("CORSOrigins = %v, want two origins", cfg.Security.CORSOrigins)
	}

	// Untouched values keep their defaults.
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Server.Timeout = %v, want default 30s", cfg.Server.Timeout)
	}
	if cfg.Attack.Seed != 42 {
		t.Errorf("Attack.Seed = %d, want default 42", cfg.Attack.Seed)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: -5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	if _, err := Load(); err == nil {
		t.Error("Load() = nil error, want validation failure")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"HTTP_PORT", "server.port"},
		{"TMDB_API_KEY", "tmdb.api_key"},
		{"ATTACK_SEED", "attack.seed"},
		{"DEFENSE_CLIP_FACTOR", "defense.clip_factor"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
