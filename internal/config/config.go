// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration tree.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Personas   PersonasConfig   `koanf:"personas"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Guardrails GuardrailsConfig `koanf:"guardrails"`
	Batch      BatchConfig      `koanf:"batch"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// StorageConfig configures the BadgerDB store.
type StorageConfig struct {
	Path           string        `koanf:"path"`
	InMemory       bool          `koanf:"in_memory"`
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`
}

// PersonasConfig points at the declarative persona rule file. An empty
// or missing path falls back to the built-in persona set.
type PersonasConfig struct {
	ConfigPath string `koanf:"config_path"`
}

// CatalogConfig points at the content catalog file. An empty or missing
// path falls back to the built-in minimal catalog.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// RecommendConfig tunes the recommendation engine.
type RecommendConfig struct {
	MaxRecommendations int    `koanf:"max_recommendations"`
	ExcludeRecentDays  int    `koanf:"exclude_recent_days"`
	Window             string `koanf:"window"`
}

// GuardrailsConfig tunes consent and rate-cap enforcement.
type GuardrailsConfig struct {
	DailyCap int `koanf:"daily_cap"`
}

// BatchConfig configures periodic regeneration for all users.
type BatchConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that cannot work at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("server.rate_limit_reqs must be at least 1, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("server.rate_limit_window must be positive, got %s", c.Server.RateLimitWindow)
		}
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Storage.GCInterval <= 0 {
		return fmt.Errorf("storage.gc_interval must be positive, got %s", c.Storage.GCInterval)
	}
	if c.Storage.GCDiscardRatio <= 0 || c.Storage.GCDiscardRatio > 1 {
		return fmt.Errorf("storage.gc_discard_ratio must be in (0, 1], got %v", c.Storage.GCDiscardRatio)
	}
	if c.Recommend.MaxRecommendations < 1 {
		return fmt.Errorf("recommend.max_recommendations must be at least 1, got %d", c.Recommend.MaxRecommendations)
	}
	if c.Recommend.ExcludeRecentDays < 0 {
		return fmt.Errorf("recommend.exclude_recent_days must not be negative, got %d", c.Recommend.ExcludeRecentDays)
	}
	if c.Guardrails.DailyCap < 1 {
		return fmt.Errorf("guardrails.daily_cap must be at least 1, got %d", c.Guardrails.DailyCap)
	}
	if c.Batch.Enabled && c.Batch.Interval <= 0 {
		return fmt.Errorf("batch.interval must be positive when batch.enabled is set, got %s", c.Batch.Interval)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", c.Logging.Format)
	}
	return nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
