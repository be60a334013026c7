// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Cache.Tier1.Policy != "adaptive" {
		t.Errorf("default tier1 policy = %q, want adaptive", cfg.Cache.Tier1.Policy)
	}
	if cfg.Recommend.DefaultWeight != 0.5 {
		t.Errorf("default weight = %v, want 0.5", cfg.Recommend.DefaultWeight)
	}
	if cfg.Cache.Tier2.Backend != "redis" {
		t.Errorf("default tier2 backend = %q, want redis", cfg.Cache.Tier2.Backend)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOOKMILL_CACHE_TIER1_POLICY", "lfu")
	t.Setenv("BOOKMILL_CACHE_TIER1_CAPACITY", "42")
	t.Setenv("BOOKMILL_RECOMMEND_DEFAULT_WEIGHT", "0.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Cache.Tier1.Policy != "lfu" {
		t.Errorf("tier1 policy = %q, want lfu", cfg.Cache.Tier1.Policy)
	}
	if cfg.Cache.Tier1.Capacity != 42 {
		t.Errorf("tier1 capacity = %d, want 42", cfg.Cache.Tier1.Capacity)
	}
	if cfg.Recommend.DefaultWeight != 0.7 {
		t.Errorf("default weight = %v, want 0.7", cfg.Recommend.DefaultWeight)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("cache:\n  tier1:\n    capacity: 7\n    ttl: 90s\nrecommend:\n  max_count: 25\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Cache.Tier1.Capacity != 7 {
		t.Errorf("tier1 capacity = %d, want 7", cfg.Cache.Tier1.Capacity)
	}
	if cfg.Cache.Tier1.TTL != 90*time.Second {
		t.Errorf("tier1 ttl = %v, want 90s", cfg.Cache.Tier1.TTL)
	}
	if cfg.Recommend.MaxCount != 25 {
		t.Errorf("max count = %d, want 25", cfg.Recommend.MaxCount)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Tier1.Policy = "random"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown eviction policy")
	}

	cfg = defaultConfig()
	cfg.Recommend.DefaultWeight = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for weight > 1")
	}

	cfg = defaultConfig()
	cfg.Recommend.DefaultCount = 500
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for default_count > max_count")
	}

	cfg = defaultConfig()
	cfg.Cache.Tier2.Backend = "badger"
	cfg.Cache.Tier2.Badger.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for persistent badger without path")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	cases := map[string]string{
		"BOOKMILL_LOGGING_LEVEL":                      "logging.level",
		"BOOKMILL_CACHE_TIER1_POLICY":                 "cache.tier1.policy",
		"BOOKMILL_CACHE_TIER1_ADAPTIVE_WINDOW":        "cache.tier1.adaptive_window",
		"BOOKMILL_RECOMMEND_COLLABORATIVE_DISTANCE":   "recommend.collaborative_distance",
		"BOOKMILL_CACHE_WARM_TIER2_WRITES_PER_SECOND": "cache.warm.tier2_writes_per_second",
	}

	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
