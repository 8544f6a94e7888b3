package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goPerm/permission"
)

func newTestMemory(t *testing.T, ttl time.Duration) *Memory {
	t.Helper()
	m := NewMemory(MemoryOptions{TTLCeiling: ttl, Shards: 8})
	t.Cleanup(m.Close)
	return m
}

func TestMemoryPutGet(t *testing.T) {
	m := newTestMemory(t, time.Minute)
	ctx := context.Background()

	if _, ok := m.Get(ctx, "u1", "c1"); ok {
		t.Fatalf("Get on empty cache hit")
	}

	m.Put(ctx, "u1", "c1", "s1", permission.SendMessages)

	mask, ok := m.Get(ctx, "u1", "c1")
	if !ok {
		t.Fatalf("Get missed after Put")
	}
	if mask != permission.SendMessages {
		t.Fatalf("Get = %v, want %v", mask, permission.SendMessages)
	}
}

func TestMemoryExpiredEntryMisses(t *testing.T) {
	m := newTestMemory(t, 10*time.Millisecond)
	ctx := context.Background()

	m.Put(ctx, "u1", "c1", "s1", permission.SendMessages)
	time.Sleep(25 * time.Millisecond)

	if _, ok := m.Get(ctx, "u1", "c1"); ok {
		t.Fatalf("expired entry served as hit")
	}
}

func TestMemoryInvalidateChannel(t *testing.T) {
	m := newTestMemory(t, time.Minute)
	ctx := context.Background()

	m.Put(ctx, "u1", "c1", "s1", permission.SendMessages)
	m.Put(ctx, "u2", "c1", "s1", permission.Connect)
	m.Put(ctx, "u1", "c2", "s1", permission.Speak)

	if err := m.InvalidateChannel(ctx, "c1"); err != nil {
		t.Fatalf("InvalidateChannel failed: %v", err)
	}

	if _, ok := m.Get(ctx, "u1", "c1"); ok {
		t.Fatalf("c1 entry for u1 survived channel invalidation")
	}
	if _, ok := m.Get(ctx, "u2", "c1"); ok {
		t.Fatalf("c1 entry for u2 survived channel invalidation")
	}
	if _, ok := m.Get(ctx, "u1", "c2"); !ok {
		t.Fatalf("unrelated c2 entry was dropped")
	}
}

func TestMemoryInvalidateServer(t *testing.T) {
	m := newTestMemory(t, time.Minute)
	ctx := context.Background()

	m.Put(ctx, "u1", "c1", "s1", permission.SendMessages)
	m.Put(ctx, "u2", "c2", "s1", permission.Connect)
	m.Put(ctx, "u1", "c9", "s2", permission.Speak)

	if err := m.InvalidateServer(ctx, "s1"); err != nil {
		t.Fatalf("InvalidateServer failed: %v", err)
	}

	if _, ok := m.Get(ctx, "u1", "c1"); ok {
		t.Fatalf("s1 entry survived server invalidation")
	}
	if _, ok := m.Get(ctx, "u2", "c2"); ok {
		t.Fatalf("s1 entry survived server invalidation")
	}
	if _, ok := m.Get(ctx, "u1", "c9"); !ok {
		t.Fatalf("s2 entry was dropped by s1 invalidation")
	}
}

func TestMemoryInvalidateUserServer(t *testing.T) {
	m := newTestMemory(t, time.Minute)
	ctx := context.Background()

	m.Put(ctx, "u1", "c1", "s1", permission.SendMessages)
	m.Put(ctx, "u2", "c1", "s1", permission.Connect)
	m.Put(ctx, "u1", "c9", "s2", permission.Speak)

	if err := m.InvalidateUserServer(ctx, "s1", "u1"); err != nil {
		t.Fatalf("InvalidateUserServer failed: %v", err)
	}

	if _, ok := m.Get(ctx, "u1", "c1"); ok {
		t.Fatalf("(s1,u1) entry survived member invalidation")
	}
	if _, ok := m.Get(ctx, "u2", "c1"); !ok {
		t.Fatalf("other member's entry was dropped")
	}
	if _, ok := m.Get(ctx, "u1", "c9"); !ok {
		t.Fatalf("same user's entry on another server was dropped")
	}
}

func TestMemoryJanitorEvicts(t *testing.T) {
	m := newTestMemory(t, 20*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 32; i++ {
		m.Put(ctx, fmt.Sprintf("u%d", i), "c1", "s1", permission.SendMessages)
	}

	deadline := time.Now().Add(time.Second)
	for m.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not evict expired entries, Len = %d", m.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := newTestMemory(t, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for worker := 0; worker < 16; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", worker%4)
			for i := 0; i < 200; i++ {
				channel := fmt.Sprintf("c%d", i%8)
				m.Put(ctx, user, channel, "s1", permission.SendMessages)
				m.Get(ctx, user, channel)
				if i%50 == 0 {
					_ = m.InvalidateChannel(ctx, channel)
				}
			}
		}(worker)
	}
	wg.Wait()
}
