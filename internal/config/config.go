// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package config provides layered configuration for Bookmill using Koanf v2.
//
// Precedence: environment variables > YAML config file > built-in defaults.
// Environment variables use the BOOKMILL_ prefix with underscores mapping to
// nesting, e.g. BOOKMILL_CACHE_TIER1_CAPACITY -> cache.tier1.capacity.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Bookmill server.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Server    ServerConfig    `koanf:"server"`
	Cache     CacheConfig     `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	Model     ModelConfig     `koanf:"model"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes file:line in log output.
	Caller bool `koanf:"caller"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RequestsPerMinute is the per-IP rate limit. Zero disables limiting.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"gte=0"`

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// CacheConfig controls the two-tier cache manager.
type CacheConfig struct {
	Tier1 Tier1Config `koanf:"tier1"`
	Tier2 Tier2Config `koanf:"tier2"`
	Warm  WarmConfig  `koanf:"warm"`
}

// Tier1Config controls the bounded in-process cache.
type Tier1Config struct {
	// Capacity is the maximum number of resident entries.
	Capacity int `koanf:"capacity" validate:"gt=0"`

	// TTL is the entry time-to-live.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`

	// Policy selects the eviction policy: lru, lfu, ttl, adaptive.
	Policy string `koanf:"policy" validate:"oneof=lru lfu ttl adaptive"`

	// AdaptiveWindow is the number of recent evictions the adaptive policy
	// considers when comparing shadow LRU/LFU hit rates.
	AdaptiveWindow int `koanf:"adaptive_window" validate:"gt=0"`

	// AdaptiveSwitchMargin is the hit-rate lead (0-1) the shadow policy must
	// hold over the active one before the adaptive policy switches.
	AdaptiveSwitchMargin float64 `koanf:"adaptive_switch_margin" validate:"gte=0,lte=1"`
}

// Tier2Config controls the remote cache tier.
type Tier2Config struct {
	// Backend selects the store: redis, badger, or none.
	Backend string `koanf:"backend" validate:"oneof=redis badger none"`

	// TTL is the remote entry time-to-live.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`

	Redis  RedisConfig  `koanf:"redis"`
	Badger BadgerConfig `koanf:"badger"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration `koanf:"dial_timeout" validate:"gt=0"`

	// OpTimeout bounds individual cache operations.
	OpTimeout time.Duration `koanf:"op_timeout" validate:"gt=0"`
}

// BadgerConfig holds embedded Badger store settings.
type BadgerConfig struct {
	// Path is the on-disk location. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory runs Badger without persistence (tests, ephemeral deploys).
	InMemory bool `koanf:"in_memory"`
}

// WarmConfig controls cache warming.
type WarmConfig struct {
	// Concurrency bounds parallel loader invocations.
	Concurrency int `koanf:"concurrency" validate:"gt=0"`

	// Tier2WritesPerSecond paces writes toward the remote tier during
	// warming so a retrain does not saturate it. Zero disables pacing.
	Tier2WritesPerSecond float64 `koanf:"tier2_writes_per_second" validate:"gte=0"`
}

// RecommendConfig controls the hybrid ranking engine.
type RecommendConfig struct {
	// DefaultWeight is the collaborative weight used when a request does not
	// specify one. Content weight is 1 - DefaultWeight.
	DefaultWeight float64 `koanf:"default_weight" validate:"gte=0,lte=1"`

	// DefaultCount is the number of recommendations when unspecified.
	DefaultCount int `koanf:"default_count" validate:"gt=0"`

	// MaxCount is the ceiling on requested recommendations.
	MaxCount int `koanf:"max_count" validate:"gt=0"`

	// ScoringTimeout bounds the fork-join scoring phase.
	ScoringTimeout time.Duration `koanf:"scoring_timeout" validate:"gt=0"`

	// CollaborativeDistance selects the latent-factor affinity measure:
	// dot or cosine.
	CollaborativeDistance string `koanf:"collaborative_distance" validate:"oneof=dot cosine"`

	// MaxCandidates caps the candidate pool considered per request.
	MaxCandidates int `koanf:"max_candidates" validate:"gt=0"`
}

// ModelConfig controls model artifact loading.
type ModelConfig struct {
	// ArtifactPath is the JSON artifact produced by the offline trainer.
	ArtifactPath string `koanf:"artifact_path" validate:"required"`

	// ReloadInterval is how often the artifact is polled for a new version.
	// Zero disables polling.
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"gte=0"`
}

// defaultConfig returns the built-in defaults, applied before file and env
// layers.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ShutdownTimeout:   10 * time.Second,
			RequestsPerMinute: 300,
			AllowedOrigins:    []string{"*"},
		},
		Cache: CacheConfig{
			Tier1: Tier1Config{
				Capacity:             1024,
				TTL:                  5 * time.Minute,
				Policy:               "adaptive",
				AdaptiveWindow:       64,
				AdaptiveSwitchMargin: 0.05,
			},
			Tier2: Tier2Config{
				Backend: "redis",
				TTL:     30 * time.Minute,
				Redis: RedisConfig{
					Addr:        "localhost:6379",
					DialTimeout: 5 * time.Second,
					OpTimeout:   250 * time.Millisecond,
				},
				Badger: BadgerConfig{
					Path: "data/cache",
				},
			},
			Warm: WarmConfig{
				Concurrency:          8,
				Tier2WritesPerSecond: 200,
			},
		},
		Recommend: RecommendConfig{
			DefaultWeight:         0.5,
			DefaultCount:          10,
			MaxCount:              100,
			ScoringTimeout:        2 * time.Second,
			CollaborativeDistance: "dot",
			MaxCandidates:         5000,
		},
		Model: ModelConfig{
			ArtifactPath:   "data/model.json",
			ReloadInterval: time.Minute,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Recommend.DefaultCount > c.Recommend.MaxCount {
		return fmt.Errorf("recommend.default_count %d exceeds max_count %d",
			c.Recommend.DefaultCount, c.Recommend.MaxCount)
	}

	if c.Cache.Tier2.Backend == "badger" && !c.Cache.Tier2.Badger.InMemory && c.Cache.Tier2.Badger.Path == "" {
		return fmt.Errorf("cache.tier2.badger.path required for persistent badger backend")
	}

	return nil
}
