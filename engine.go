package goPerm

import (
	"github.com/MrEthical07/goPerm/permission"
)

// Engine defines a public type used by goPerm APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config        Config
	registry      *permission.Registry
	directory     Directory
	store         MutationStore
	cache         ResolutionCache
	invalidations *invalidationDispatcher
	metrics       *Metrics
}

// Registry returns the frozen permission registry the engine was built with.
func (e *Engine) Registry() *permission.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// Close releases engine resources: the invalidation dispatcher is drained
// and the cache's background workers are stopped.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.invalidations != nil {
		e.invalidations.Close()
	}
	if e.cache != nil {
		e.cache.Close()
	}
}

// InvalidationsDropped reports how many invalidation events were shed under
// sink backpressure since start. Non-zero values mean remote caches rely on
// the TTL ceiling until the next overlapping invalidation.
func (e *Engine) InvalidationsDropped() uint64 {
	if e == nil || e.invalidations == nil {
		return 0
	}
	return e.invalidations.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of engine counters and
// histograms for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
