// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package config holds all application configuration, loaded in layers:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file
//  3. Environment variables: override any setting
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Engine    EngineConfig    `koanf:"engine"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Search    SearchConfig    `koanf:"search"`
	ActorPool ActorPoolConfig `koanf:"actor_pool"`
	Server    ServerConfig    `koanf:"server"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// EngineConfig configures the detection pipeline.
type EngineConfig struct {
	// Strategy selects content matching: "links", "text" or "ocr".
	Strategy string `koanf:"strategy" validate:"oneof=links text ocr"`

	// CoordinationInterval is the temporal window width.
	CoordinationInterval time.Duration `koanf:"coordination_interval" validate:"gt=0"`

	// PercentileEdgeWeight keeps only edges at or above this percentile of
	// the projected weight distribution. Exclusive bounds.
	PercentileEdgeWeight float64 `koanf:"percentile_edge_weight" validate:"gt=0,lt=1"`

	// SimilarityThreshold is the cosine similarity floor for the text
	// strategy. Exclusive bounds: 1.0 would demand float-exact equality.
	SimilarityThreshold float64 `koanf:"similarity_threshold" validate:"gt=0,lt=1"`

	// MinDistinctActors is the minimum distinct actors for a window to
	// qualify as coordinated.
	MinDistinctActors int `koanf:"min_distinct_actors" validate:"gte=2"`

	// ClusterSeed seeds community detection for reproducible runs.
	ClusterSeed int64 `koanf:"cluster_seed"`

	// SearchConcurrency bounds parallel content-search lookups.
	SearchConcurrency int `koanf:"search_concurrency" validate:"gte=1"`
}

// MonitorConfig configures the periodic cycle loop.
type MonitorConfig struct {
	Interval     time.Duration `koanf:"interval" validate:"gt=0"`
	CycleTimeout time.Duration `koanf:"cycle_timeout" validate:"gte=0"`
	Lookback     time.Duration `koanf:"lookback" validate:"gte=0"`
}

// IngestConfig configures the upstream event batch source.
type IngestConfig struct {
	Endpoint string            `koanf:"endpoint" validate:"required,url"`
	Headers  map[string]string `koanf:"headers"`
	Timeout  time.Duration     `koanf:"timeout" validate:"gt=0"`
}

// SearchConfig configures the content-search collaborator. Search is
// optional; the links strategy never uses it.
type SearchConfig struct {
	Enabled          bool              `koanf:"enabled"`
	Endpoint         string            `koanf:"endpoint" validate:"omitempty,url"`
	Headers          map[string]string `koanf:"headers"`
	Timeout          time.Duration     `koanf:"timeout" validate:"gt=0"`
	PacingInterval   time.Duration     `koanf:"pacing_interval" validate:"gt=0"`
	Burst            int               `koanf:"burst" validate:"gte=1"`
	RetryAttempts    int               `koanf:"retry_attempts" validate:"gte=1"`
	RetryBackoff     time.Duration     `koanf:"retry_backoff" validate:"gt=0"`
	FailureThreshold uint32            `koanf:"failure_threshold" validate:"gte=1"`
	BreakerTimeout   time.Duration     `koanf:"breaker_timeout" validate:"gt=0"`
}

// ActorPoolConfig configures the discovered-actor store.
type ActorPoolConfig struct {
	// Path is the BadgerDB directory. Empty selects an in-memory store
	// that does not survive restarts.
	Path string `koanf:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// WebhookConfig configures report delivery to an external endpoint.
type WebhookConfig struct {
	Enabled     bool              `koanf:"enabled"`
	URL         string            `koanf:"url" validate:"omitempty,url"`
	Headers     map[string]string `koanf:"headers"`
	RateLimitMs int               `koanf:"rate_limit_ms" validate:"gte=0"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by file and environment.
func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Strategy:             "links",
			CoordinationInterval: 60 * time.Second,
			PercentileEdgeWeight: 0.95,
			SimilarityThreshold:  0.7,
			MinDistinctActors:    2,
			ClusterSeed:          1,
			SearchConcurrency:    4,
		},
		Monitor: MonitorConfig{
			Interval:     5 * time.Minute,
			CycleTimeout: 5 * time.Minute,
			Lookback:     5 * time.Minute,
		},
		Ingest: IngestConfig{
			Endpoint: "",
			Timeout:  30 * time.Second,
		},
		Search: SearchConfig{
			Enabled:          false,
			Timeout:          15 * time.Second,
			PacingInterval:   time.Second,
			Burst:            1,
			RetryAttempts:    3,
			RetryBackoff:     500 * time.Millisecond,
			FailureThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		ActorPool: ActorPoolConfig{
			Path: "/data/actorpool",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Webhook: WebhookConfig{
			Enabled:     false,
			RateLimitMs: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
