package goPerm

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricCheckAllowed)
	m.Observe(MetricResolveLatency, 10*time.Millisecond)

	if m.Value(MetricCheckAllowed) != 0 {
		t.Fatalf("disabled metrics recorded a counter")
	}
	s := m.Snapshot()
	if len(s.Counters) != 0 || len(s.Histograms) != 0 {
		t.Fatalf("disabled metrics produced a non-empty snapshot")
	}
}

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Inc(MetricResolveCacheHit)
	m.Inc(MetricResolveCacheHit)
	m.Inc(MetricMutationApplied)

	if got := m.Value(MetricResolveCacheHit); got != 2 {
		t.Fatalf("Value = %d, want 2", got)
	}

	s := m.Snapshot()
	if s.Counters[MetricResolveCacheHit] != 2 {
		t.Fatalf("snapshot counter = %d, want 2", s.Counters[MetricResolveCacheHit])
	}
	if s.Counters[MetricMutationApplied] != 1 {
		t.Fatalf("snapshot counter = %d, want 1", s.Counters[MetricMutationApplied])
	}
}

func TestMetricsObserveBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := map[time.Duration]int{
		2 * time.Millisecond:    0,
		8 * time.Millisecond:    1,
		20 * time.Millisecond:   2,
		40 * time.Millisecond:   3,
		80 * time.Millisecond:   4,
		200 * time.Millisecond:  5,
		400 * time.Millisecond:  6,
		1200 * time.Millisecond: 7,
	}
	for d := range samples {
		m.Observe(MetricResolveLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricResolveLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count = %d, want %d", len(buckets), histBucketCount)
	}
	for d, idx := range samples {
		if buckets[idx] != 1 {
			t.Fatalf("sample %v not recorded in bucket %d: %v", d, idx, buckets)
		}
	}
}

func TestMetricsLatencyDisabledKeepsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: false})

	m.Inc(MetricCheckAllowed)
	m.Observe(MetricResolveLatency, 10*time.Millisecond)

	s := m.Snapshot()
	if s.Counters[MetricCheckAllowed] != 1 {
		t.Fatalf("counter lost with latency disabled")
	}
	if len(s.Histograms) != 0 {
		t.Fatalf("latency histogram recorded while disabled")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Inc(MetricResolveCacheMiss)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricResolveCacheMiss); got != workers*perWorker {
		t.Fatalf("Value = %d, want %d", got, workers*perWorker)
	}
}

func TestBucketIndexBounds(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}
