// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookmill/config.yaml",
	"/etc/bookmill/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "BOOKMILL_CONFIG"

// envPrefix is the prefix for configuration environment variables.
const envPrefix = "BOOKMILL_"

// Load builds the configuration from layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. BOOKMILL_* environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// multiWordKeys maps flattened environment suffixes to their koanf paths for
// keys whose names contain underscores, where a naive underscore-to-dot
// replacement would mis-nest them.
var multiWordKeys = map[string]string{
	"server_shutdown_timeout":            "server.shutdown_timeout",
	"server_requests_per_minute":         "server.requests_per_minute",
	"server_allowed_origins":             "server.allowed_origins",
	"cache_tier1_adaptive_window":        "cache.tier1.adaptive_window",
	"cache_tier1_adaptive_switch_margin": "cache.tier1.adaptive_switch_margin",
	"cache_tier2_redis_dial_timeout":     "cache.tier2.redis.dial_timeout",
	"cache_tier2_redis_op_timeout":       "cache.tier2.redis.op_timeout",
	"cache_tier2_badger_in_memory":       "cache.tier2.badger.in_memory",
	"cache_warm_tier2_writes_per_second": "cache.warm.tier2_writes_per_second",
	"recommend_default_weight":           "recommend.default_weight",
	"recommend_default_count":            "recommend.default_count",
	"recommend_max_count":                "recommend.max_count",
	"recommend_max_candidates":           "recommend.max_candidates",
	"recommend_scoring_timeout":          "recommend.scoring_timeout",
	"recommend_collaborative_distance":   "recommend.collaborative_distance",
	"model_artifact_path":                "model.artifact_path",
	"model_reload_interval":              "model.reload_interval",
}

// envTransformFunc maps BOOKMILL_* environment variable names to koanf paths.
//
// Examples:
//   - BOOKMILL_LOGGING_LEVEL        -> logging.level
//   - BOOKMILL_CACHE_TIER1_POLICY   -> cache.tier1.policy
//   - BOOKMILL_RECOMMEND_MAX_COUNT  -> recommend.max_count
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	if path, ok := multiWordKeys[key]; ok {
		return path
	}

	return strings.ReplaceAll(key, "_", ".")
}
