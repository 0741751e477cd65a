// Package config loads the recall configuration from a YAML file,
// applies documented defaults, and validates fail-fast values before
// the engine is constructed.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the recall configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Timing   TimingConfig   `yaml:"timing"`
	Session  SessionConfig  `yaml:"session"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Learning LearningConfig `yaml:"learning"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig holds the sqlite corpus location.
type StorageConfig struct {
	Path string `yaml:"path"` // Database path (empty = ~/.recall/recall.db)
}

// ScoringConfig holds relevance weights. The five weights must sum to
// 1.0; leaving them all zero uses the defaults.
type ScoringConfig struct {
	WeightURL      float64 `yaml:"weight_url"`      // URL/domain similarity weight
	WeightCategory float64 `yaml:"weight_category"` // Category equality weight
	WeightKeywords float64 `yaml:"weight_keywords"` // Keyword overlap weight
	WeightConcepts float64 `yaml:"weight_concepts"` // Concept overlap weight
	WeightContent  float64 `yaml:"weight_content"`  // Content-text similarity weight
}

// RankingConfig holds candidate filtering and budgets.
type RankingConfig struct {
	MinScore          float64 `yaml:"min_score"`           // Relevance threshold
	MaxResults        int     `yaml:"max_results"`         // Suggestion budget per pass
	RecencyWindowDays int     `yaml:"recency_window_days"` // 0 = no recency pre-filter
	HighImportance    int     `yaml:"high_importance"`     // Importance boost threshold (0-10)
	FrequentAccess    int     `yaml:"frequent_access"`     // Access-count boost threshold
}

// TimingConfig holds resurfacing schedule parameters.
type TimingConfig struct {
	MinIntervalHours  int `yaml:"min_interval_hours"`  // Per-item resurfacing throttle
	ImmediateDelaySec int `yaml:"immediate_delay_sec"` // Fixed delay for immediate band
	DelayedFallbackHr int `yaml:"delayed_fallback_hr"` // Delayed band without history
	BackgroundDelayHr int `yaml:"background_delay_hr"` // Background band offset
}

// SessionConfig holds session lifecycle parameters.
type SessionConfig struct {
	HistoryCap     int `yaml:"history_cap"`     // Retained finished sessions
	MaxSuggestions int `yaml:"max_suggestions"` // Per-session suggestion cap
	TimeoutMinutes int `yaml:"timeout_minutes"` // Lazy session expiry
}

// FeedbackConfig holds analytics retention parameters.
type FeedbackConfig struct {
	HistoryCap    int     `yaml:"history_cap"`     // Retained feedback events
	TrendDays     int     `yaml:"trend_days"`      // Recent trend window
	TrendDeadZone float64 `yaml:"trend_dead_zone"` // Stable classification band
}

// LearningConfig holds preference adjustment parameters.
type LearningConfig struct {
	MaxBoost   float64 `yaml:"max_boost"`   // Score adjustment bound
	MinSamples int     `yaml:"min_samples"` // Low-sample freeze threshold
}

// DeliveryConfig holds notification hand-off parameters.
type DeliveryConfig struct {
	Style         string `yaml:"style"`          // minimal|detailed|contextual
	MaxConcurrent int    `yaml:"max_concurrent"` // Concurrent notification cap
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Scoring: ScoringConfig{
			WeightURL:      0.15,
			WeightCategory: 0.20,
			WeightKeywords: 0.25,
			WeightConcepts: 0.25,
			WeightContent:  0.15,
		},
		Ranking: RankingConfig{
			MinScore:       0.3,
			MaxResults:     5,
			HighImportance: 7,
			FrequentAccess: 10,
		},
		Timing: TimingConfig{
			MinIntervalHours:  24,
			ImmediateDelaySec: 30,
			DelayedFallbackHr: 2,
			BackgroundDelayHr: 6,
		},
		Session: SessionConfig{
			HistoryCap:     50,
			MaxSuggestions: 5,
			TimeoutMinutes: 30,
		},
		Feedback: FeedbackConfig{
			HistoryCap:    1000,
			TrendDays:     7,
			TrendDeadZone: 0.05,
		},
		Learning: LearningConfig{
			MaxBoost:   0.25,
			MinSamples: 5,
		},
		Delivery: DeliveryConfig{
			Style:         "contextual",
			MaxConcurrent: 3,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns the default config file path (~/.recall/config.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "config.yaml"), nil
}

// Load reads the config file at path, merging it over the defaults. A
// missing file yields the defaults. Invalid values fail here, before
// any component is constructed.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks fail-fast constraints.
func (c Config) Validate() error {
	sum := c.Scoring.WeightURL + c.Scoring.WeightCategory + c.Scoring.WeightKeywords +
		c.Scoring.WeightConcepts + c.Scoring.WeightContent
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}
	if c.Ranking.MinScore < 0 || c.Ranking.MinScore > 1 {
		return fmt.Errorf("ranking min_score must be in [0,1], got %v", c.Ranking.MinScore)
	}
	if c.Feedback.TrendDeadZone < 0 || c.Feedback.TrendDeadZone > 0.5 {
		return fmt.Errorf("feedback trend_dead_zone must be in [0,0.5], got %v", c.Feedback.TrendDeadZone)
	}
	switch c.Delivery.Style {
	case "minimal", "detailed", "contextual":
	default:
		return fmt.Errorf("delivery style must be minimal, detailed, or contextual, got %q", c.Delivery.Style)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	return nil
}

// MinInterval returns the resurfacing throttle as a duration.
func (c TimingConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalHours) * time.Hour
}

// SessionTimeout returns the session timeout as a duration.
func (c SessionConfig) SessionTimeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}
