// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package config defines the application configuration and its
// layered loading: struct defaults, optional YAML file, environment
// variables. Every engine policy constant lives here so the lab's
// behavior is tunable without recompiling.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Recommend RecommendConfig `koanf:"recommend"`
	Attack    AttackConfig    `koanf:"attack"`
	Defense   DefenseConfig   `koanf:"defense"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Eval      EvalConfig      `koanf:"eval"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatasetConfig points at the MovieLens-style input files and pins
// the rating scale.
type DatasetConfig struct {
	RatingsPath string  `koanf:"ratings_path"`
	ItemsPath   string  `koanf:"items_path"`
	ScaleMin    float64 `koanf:"scale_min"`
	ScaleMax    float64 `koanf:"scale_max"`
}

// RecommendConfig tunes the recommendation service.
type RecommendConfig struct {
	Workers     int `koanf:"workers"`
	DefaultTopK int `koanf:"default_top_k"`
	MaxTopK     int `koanf:"max_top_k"`
}

// AttackConfig describes the simulated push attack. TargetItem 0
// selects a popular target automatically at startup.
type AttackConfig struct {
	TargetItem       int   `koanf:"target_item"`
	Profiles         int   `koanf:"profiles"`
	Fillers          int   `koanf:"fillers"`
	Seed             int64 `koanf:"seed"`
	MinTargetRatings int   `koanf:"min_target_ratings"`
}

// DefenseConfig holds the statistical filter thresholds.
type DefenseConfig struct {
	MinRatings      int     `koanf:"min_ratings"`
	MaxStdDev       float64 `koanf:"max_std_dev"`
	MinExtremeShare float64 `koanf:"min_extreme_share"`
	ClipFactor      float64 `koanf:"clip_factor"`
}

// TMDBConfig configures poster lookups. An empty APIKey disables
// them entirely.
type TMDBConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	ImageBaseURL      string        `koanf:"image_base_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	Timeout           time.Duration `koanf:"timeout"`
	CachePath         string        `koanf:"cache_path"` // empty = in-memory cache
}

// EvalConfig bounds the attack-effect experiment.
type EvalConfig struct {
	SampleSize int   `koanf:"sample_size"`
	Seed       int64 `koanf:"seed"`
}

// SecurityConfig holds the API hardening knobs.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors the logging package's Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These
// are overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8600,
			Timeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			RatingsPath: "data/u.data",
			ItemsPath:   "data/u.item",
			ScaleMin:    1,
			ScaleMax:    5,
		},
		Recommend: RecommendConfig{
			Workers:     4,
			DefaultTopK: 10,
			MaxTopK:     100,
		},
		Attack: AttackConfig{
			TargetItem:       0, // auto-select a popular item
			Profiles:         50,
			Fillers:          30,
			Seed:             42,
			MinTargetRatings: 50,
		},
		Defense: DefenseConfig{
			MinRatings:      3,
			MaxStdDev:       0.6,
			MinExtremeShare: 0.9,
			ClipFactor:      0.5,
		},
		TMDB: TMDBConfig{
			APIKey:            "",
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
			RequestsPerSecond: 4,
			Burst:             8,
			Timeout:           5 * time.Second,
			CachePath:         "",
		},
		Eval: EvalConfig{
			SampleSize: 200,
			Seed:       42,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks cross-field consistency before the config is used.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d outside [1, 65535]", c.Server.Port)
	}
	if c.Dataset.RatingsPath == "" {
		return fmt.Errorf("dataset.ratings_path is required")
	}
	if c.Dataset.ScaleMin >= c.Dataset.ScaleMax {
		return fmt.Errorf("dataset scale [%v, %v] is empty", c.Dataset.ScaleMin, c.Dataset.ScaleMax)
	}
	if c.Recommend.Workers < 1 {
		return fmt.Errorf("recommend.workers must be >= 1, got %d", c.Recommend.Workers)
	}
	if c.Recommend.DefaultTopK < 1 || c.Recommend.DefaultTopK > c.Recommend.MaxTopK {
		return fmt.Errorf("recommend.default_top_k %d outside [1, %d]", c.Recommend.DefaultTopK, c.Recommend.MaxTopK)
	}
	if c.Attack.Profiles < 0 || c.Attack.Fillers < 0 {
		return fmt.Errorf("attack profile/filler counts must be >= 0")
	}
	if c.Defense.MinRatings < 1 {
		return fmt.Errorf("defense.min_ratings must be >= 1, got %d", c.Defense.MinRatings)
	}
	if c.Defense.ClipFactor < 0 || c.Defense.ClipFactor > 1 {
		return fmt.Errorf("defense.clip_factor %v outside [0, 1]", c.Defense.ClipFactor)
	}
	if c.Defense.MinExtremeShare < 0 || c.Defense.MinExtremeShare > 1 {
		return fmt.Errorf("defense.min_extreme_share %v outside [0, 1]", c.Defense.MinExtremeShare)
	}
	if c.Eval.SampleSize < 1 {
		return fmt.Errorf("eval.sample_size must be >= 1, got %d", c.Eval.SampleSize)
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("security.rate_limit_reqs must be >= 1 when rate limiting is on")
	}
	return nil
}
