// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package config loads service configuration from defaults, an optional
// YAML file, and environment variables, in that precedence order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/blockfeed/internal/database"
	"github.com/tomtom215/blockfeed/internal/embedding"
	"github.com/tomtom215/blockfeed/internal/logging"
	"github.com/tomtom215/blockfeed/internal/recommend"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// BLOCKFEED_SERVER_PORT=9090 sets server.port.
const envPrefix = "BLOCKFEED_"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`

	// CORSOrigins lists allowed origins. Empty means same-origin only.
	CORSOrigins []string `koanf:"cors_origins"`
}

// EncoderConfig selects and configures the embedding encoder.
type EncoderConfig struct {
	// Provider is "api" for the remote embedding service or "hashing"
	// for the deterministic local encoder.
	Provider string `koanf:"provider" validate:"oneof=api hashing"`

	// Dim is the hashing encoder dimensionality.
	Dim int `koanf:"dim"`

	API embedding.ClientConfig `koanf:"api"`
}

// SchedulerConfig configures the periodic model rebuild.
type SchedulerConfig struct {
	// Enabled controls whether the cron rebuild runs at all.
	Enabled bool `koanf:"enabled"`

	// Spec is the cron expression for rebuilds.
	Spec string `koanf:"spec"`
}

// Config is the root configuration tree.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Database  database.Config  `koanf:"database"`
	Encoder   EncoderConfig    `koanf:"encoder"`
	Scheduler SchedulerConfig  `koanf:"scheduler"`
	Logging   logging.Config   `koanf:"logging"`
	Recommend recommend.Config `koanf:"recommend"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
		},
		Database: database.Config{
			Path:         "blockfeed.db",
			MaxOpenConns: 4,
		},
		Encoder: EncoderConfig{
			Provider: "hashing",
			Dim:      256,
			API: embedding.ClientConfig{
				Model:     "voyage-3-lite",
				Timeout:   30 * time.Second,
				BatchSize: 128,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "@every 30m",
		},
		Logging:   logging.DefaultConfig(),
		Recommend: *recommend.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty and the file exists), and BLOCKFEED_* environment
// variables.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envMappings maps environment variable names (lowercased, prefix stripped)
// to koanf paths. Keys with underscores inside a segment need an explicit
// entry; everything else maps section_key to section.key.
var envMappings = map[string]string{
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"server_rate_limit":       "server.rate_limit",
	"server_cors_origins":     "server.cors_origins",
	"database_seed_dir":       "database.seed_dir",
	"database_max_open_conns": "database.max_open_conns",
	"encoder_api_url":         "encoder.api.url",
	"encoder_api_key":         "encoder.api.api_key",
	"encoder_api_model":       "encoder.api.model",
	"encoder_api_timeout":     "encoder.api.timeout",
	"encoder_api_batch_size":  "encoder.api.batch_size",
	"log_level":               "logging.level",
	"log_format":              "logging.format",
	"rebuild_spec":            "scheduler.spec",
	"rebuild_enabled":         "scheduler.enabled",
	"cache_enabled":           "recommend.cache.enabled",
	"cache_ttl":               "recommend.cache.ttl",
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return strings.Replace(key, "_", ".", 1)
}

// Validate checks cross-field constraints on the full tree.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Encoder.Provider == "api" && c.Encoder.API.URL == "" {
		return fmt.Errorf("invalid configuration: encoder.api.url required when provider is api")
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return fmt.Errorf("invalid configuration: scheduler.spec required when scheduler is enabled")
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
