package goPerm

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fetch timeout", func(c *Config) { c.Directory.FetchTimeout = 0 }},
		{"negative fetch timeout", func(c *Config) { c.Directory.FetchTimeout = -time.Second }},
		{"fetch timeout above ceiling", func(c *Config) { c.Directory.FetchTimeout = 6 * time.Second }},
		{"zero ttl ceiling", func(c *Config) { c.Cache.TTLCeiling = 0 }},
		{"sub-second ttl ceiling", func(c *Config) { c.Cache.TTLCeiling = 100 * time.Millisecond }},
		{"zero shards", func(c *Config) { c.Cache.Shards = 0 }},
		{"non power-of-two shards", func(c *Config) { c.Cache.Shards = 48 }},
		{"zero invalidation buffer", func(c *Config) { c.Invalidation.BufferSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestConfigCacheDisabledSkipsCacheChecks(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.TTLCeiling = 0
	cfg.Cache.Shards = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("cache settings validated while disabled: %v", err)
	}
}

func TestConfigInvalidationDisabledSkipsBufferCheck(t *testing.T) {
	cfg := defaultConfig()
	cfg.Invalidation.Enabled = false
	cfg.Invalidation.BufferSize = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalidation settings validated while disabled: %v", err)
	}
}

func TestBuilderRequiresDirectory(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected Build to fail without a directory")
	}
}

func TestBuilderRejectsReuse(t *testing.T) {
	store := newFakeStore()
	store.addServer("s1", "owner", 0)

	builder := New().WithDirectory(store)
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}
