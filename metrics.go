package goPerm

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricCheckAllowed counts Check calls that returned true.
	MetricCheckAllowed MetricID = iota
	// MetricCheckDenied counts Check calls that returned false without error.
	MetricCheckDenied
	// MetricResolveCacheHit counts resolutions served from the cache.
	MetricResolveCacheHit
	// MetricResolveCacheMiss counts resolutions computed from the directory.
	MetricResolveCacheMiss
	// MetricOwnerBypass counts resolutions short-circuited by server ownership.
	MetricOwnerBypass
	// MetricAdministratorBypass counts resolutions widened by the
	// post-overwrite ADMINISTRATOR bit.
	MetricAdministratorBypass
	// MetricResolveNotAMember counts resolutions rejected for non-members.
	MetricResolveNotAMember
	// MetricResolveNotFound counts resolutions against absent servers or channels.
	MetricResolveNotFound
	// MetricDirectoryError counts directory fetches that failed or timed out.
	MetricDirectoryError
	// MetricInvalidateChannel counts channel-scoped cache invalidations.
	MetricInvalidateChannel
	// MetricInvalidateServer counts server-scoped cache invalidations.
	MetricInvalidateServer
	// MetricInvalidateMember counts member-scoped cache invalidations.
	MetricInvalidateMember
	// MetricMutationApplied counts guard writes accepted and persisted.
	MetricMutationApplied
	// MetricMutationRejected counts guard writes rejected by validation.
	MetricMutationRejected
	// MetricOverwriteNormalized counts overwrite writes whose allow/deny
	// conflict was cleared (deny wins) before storage.
	MetricOverwriteNormalized
	// MetricResolveLatency is the cold-resolution latency histogram.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's lock-free counter set. Counters are cache-line
// padded so hot-path increments from different cores do not false-share.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates the metrics set for the given configuration. A disabled
// metrics set accepts increments and records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the resolve latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the identified counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample into the identified histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricResolveLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram into maps safe to hand to
// exporters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricResolveLatency].buckets[i])
		}
		s.Histograms[MetricResolveLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
