package goPerm

import (
	"errors"
	"time"
)

// Config defines a public type used by goPerm APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Directory    DirectoryConfig
	Cache        CacheConfig
	Invalidation InvalidationConfig
	Metrics      MetricsConfig
}

/*
====================================
DIRECTORY CONFIG
====================================
*/

// DirectoryConfig bounds the store fetches the resolver performs on a cache
// miss. Authorization sits on the critical path of every channel-scoped
// request, so a slow directory must surface ErrDirectoryUnavailable instead
// of hanging the caller.
type DirectoryConfig struct {
	// FetchTimeout is applied per directory call inside one resolution.
	FetchTimeout time.Duration
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the built-in resolution cache the Builder installs
// when no external [ResolutionCache] is injected.
type CacheConfig struct {
	Enabled bool
	// TTLCeiling bounds staleness from missed invalidations. Explicit
	// invalidation is the primary consistency mechanism; this is the backstop.
	TTLCeiling time.Duration
	// Shards is the number of independently locked segments. Must be a
	// power of two.
	Shards int
}

/*
====================================
INVALIDATION CONFIG
====================================
*/

// InvalidationConfig controls the asynchronous invalidation event dispatcher
// that fans mutations out to other instances' caches through an
// [InvalidationSink]. Local cache invalidation is always synchronous and is
// not affected by these settings.
type InvalidationConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the mutation path when
	// the sink falls behind. Dropped events are counted and recoverable
	// through the cache TTL ceiling.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goPerm APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Directory: DirectoryConfig{
			FetchTimeout: 250 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLCeiling: 10 * time.Minute,
			Shards:     64,
		},
		Invalidation: InvalidationConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the explicit clone point stays so
	// reference fields added later cannot alias caller state.
	return cfg
}

// Validate checks the configuration for internally inconsistent or unsafe
// values. Build rejects configurations that fail validation.
func (c Config) Validate() error {
	if c.Directory.FetchTimeout <= 0 {
		return errors.New("Directory.FetchTimeout must be positive")
	}
	if c.Directory.FetchTimeout > 5*time.Second {
		return errors.New("Directory.FetchTimeout above 5s defeats the bounded-latency contract")
	}

	if c.Cache.Enabled {
		if c.Cache.TTLCeiling <= 0 {
			return errors.New("Cache.TTLCeiling must be positive when the cache is enabled")
		}
		if c.Cache.TTLCeiling < time.Second {
			return errors.New("Cache.TTLCeiling below 1s thrashes the directory")
		}
		if c.Cache.Shards <= 0 {
			return errors.New("Cache.Shards must be positive")
		}
		if c.Cache.Shards&(c.Cache.Shards-1) != 0 {
			return errors.New("Cache.Shards must be a power of two")
		}
	}

	if c.Invalidation.Enabled && c.Invalidation.BufferSize <= 0 {
		return errors.New("Invalidation.BufferSize must be positive when invalidation dispatch is enabled")
	}

	return nil
}
