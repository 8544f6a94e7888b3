package goPerm

import (
	"errors"

	"github.com/MrEthical07/goPerm/cache"
	"github.com/MrEthical07/goPerm/permission"
)

// Builder assembles an [Engine]. Configure it with the With* chain and call
// [Builder.Build] exactly once; a Builder is not safe for concurrent use and
// cannot be reused.
type Builder struct {
	config Config

	registry  *permission.Registry
	directory Directory
	store     MutationStore
	cache     ResolutionCache
	cacheSet  bool
	sink      InvalidationSink

	built bool
}

// New creates a [Builder] preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRegistry installs a custom permission registry. The registry must be
// frozen before Build. Defaults to [permission.DefaultRegistry].
func (b *Builder) WithRegistry(r *permission.Registry) *Builder {
	b.registry = r
	return b
}

// WithDirectory installs the read-side store the resolver pulls from.
// Required.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithMutationStore installs the write-side store behind the mutation guard.
// When omitted, Build falls back to the directory if it also implements
// [MutationStore]; otherwise guard methods return [ErrMutationsDisabled].
func (b *Builder) WithMutationStore(s MutationStore) *Builder {
	b.store = s
	return b
}

// WithCache installs an external resolution cache (for example the Redis
// cache in the cache package). Passing nil disables caching entirely.
// When not called, Build installs the built-in sharded in-process cache
// per Config.Cache.
func (b *Builder) WithCache(c ResolutionCache) *Builder {
	b.cache = c
	b.cacheSet = true
	return b
}

// WithInvalidationSink installs the fan-out sink for invalidation events.
// Defaults to [NoOpSink].
func (b *Builder) WithInvalidationSink(sink InvalidationSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles counter recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the cold-resolution latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and dependencies and assembles the
// [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := b.registry
	if registry == nil {
		registry = permission.DefaultRegistry()
	}
	if registry.Count() == 0 {
		return nil, errors.New("registry has no permissions registered")
	}
	registry.Freeze()

	store := b.store
	if store == nil {
		if ms, ok := b.directory.(MutationStore); ok {
			store = ms
		}
	}

	resolutionCache := b.cache
	if !b.cacheSet && cfg.Cache.Enabled {
		resolutionCache = cache.NewMemory(cache.MemoryOptions{
			TTLCeiling: cfg.Cache.TTLCeiling,
			Shards:     cfg.Cache.Shards,
		})
	}

	engine := &Engine{
		config:        cfg,
		registry:      registry,
		directory:     b.directory,
		store:         store,
		cache:         resolutionCache,
		invalidations: newInvalidationDispatcher(cfg.Invalidation, b.sink),
		metrics:       NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
