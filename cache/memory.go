package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/MrEthical07/goPerm/permission"
)

const (
	defaultShards     = 64
	defaultTTLCeiling = 10 * time.Minute
	janitorDivisor    = 4
)

type memoryKey struct {
	userID    string
	channelID string
}

type memoryEntry struct {
	mask      permission.Mask
	serverID  string
	expiresAt time.Time
}

type memoryShard struct {
	mu      sync.RWMutex
	entries map[memoryKey]memoryEntry
}

// MemoryOptions configures [NewMemory]. Zero values fall back to 64 shards
// and a 10 minute TTL ceiling.
type MemoryOptions struct {
	TTLCeiling time.Duration
	// Shards must be a power of two; the key hash is masked, not modded.
	Shards int
}

// Memory is a sharded in-process resolution cache. Each shard carries its
// own RWMutex, so parallel resolutions on different keys never contend on a
// single global lock. Invalidation sweeps shards under their write locks;
// a janitor goroutine evicts expired entries so the maps cannot grow
// unboundedly between invalidations.
type Memory struct {
	shards    []*memoryShard
	shardMask uint64
	ttl       time.Duration

	stopJanitor chan struct{}
	closeOnce   sync.Once
}

// NewMemory creates a [Memory] cache and starts its eviction janitor.
// Callers must Close it when done.
func NewMemory(opts MemoryOptions) *Memory {
	shards := opts.Shards
	if shards <= 0 || shards&(shards-1) != 0 {
		shards = defaultShards
	}
	ttl := opts.TTLCeiling
	if ttl <= 0 {
		ttl = defaultTTLCeiling
	}

	m := &Memory{
		shards:      make([]*memoryShard, shards),
		shardMask:   uint64(shards - 1),
		ttl:         ttl,
		stopJanitor: make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &memoryShard{entries: make(map[memoryKey]memoryEntry)}
	}

	go m.janitor(ttl / janitorDivisor)

	return m
}

func (m *Memory) shardFor(key memoryKey) *memoryShard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key.userID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.channelID))
	return m.shards[h.Sum64()&m.shardMask]
}

// Get returns the cached effective mask for (userID, channelID). Expired
// entries miss even before the janitor has evicted them.
func (m *Memory) Get(_ context.Context, userID, channelID string) (permission.Mask, bool) {
	key := memoryKey{userID: userID, channelID: channelID}
	shard := m.shardFor(key)

	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.mask, true
}

// Put stores an effective mask tagged with its owning server.
func (m *Memory) Put(_ context.Context, userID, channelID, serverID string, mask permission.Mask) {
	key := memoryKey{userID: userID, channelID: channelID}
	shard := m.shardFor(key)

	shard.mu.Lock()
	shard.entries[key] = memoryEntry{
		mask:      mask,
		serverID:  serverID,
		expiresAt: time.Now().Add(m.ttl),
	}
	shard.mu.Unlock()
}

// InvalidateChannel drops every entry for the channel.
func (m *Memory) InvalidateChannel(_ context.Context, channelID string) error {
	m.deleteFunc(func(key memoryKey, _ memoryEntry) bool {
		return key.channelID == channelID
	})
	return nil
}

// InvalidateServer drops every entry under the server.
func (m *Memory) InvalidateServer(_ context.Context, serverID string) error {
	m.deleteFunc(func(_ memoryKey, entry memoryEntry) bool {
		return entry.serverID == serverID
	})
	return nil
}

// InvalidateUserServer drops one user's entries under the server.
func (m *Memory) InvalidateUserServer(_ context.Context, serverID, userID string) error {
	m.deleteFunc(func(key memoryKey, entry memoryEntry) bool {
		return key.userID == userID && entry.serverID == serverID
	})
	return nil
}

// Len reports the live entry count across shards, expired entries included.
func (m *Memory) Len() int {
	total := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}

// Close stops the janitor. The cache stays usable but no longer evicts in
// the background.
func (m *Memory) Close() {
	m.closeOnce.Do(func() {
		close(m.stopJanitor)
	})
}

func (m *Memory) deleteFunc(predicate func(memoryKey, memoryEntry) bool) {
	for _, shard := range m.shards {
		shard.mu.Lock()
		for key, entry := range shard.entries {
			if predicate(key, entry) {
				delete(shard.entries, key)
			}
		}
		shard.mu.Unlock()
	}
}

func (m *Memory) janitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.deleteFunc(func(_ memoryKey, entry memoryEntry) bool {
				return now.After(entry.expiresAt)
			})
		case <-m.stopJanitor:
			return
		}
	}
}
