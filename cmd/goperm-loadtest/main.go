package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/cache"
	"github.com/MrEthical07/goPerm/directory"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fixture struct {
	serverIDs  []string
	channelIDs []string
	userIDs    []string
}

func main() {
	var (
		servers     = flag.Int("servers", 50, "number of servers to seed")
		channels    = flag.Int("channels", 20, "channels per server")
		users       = flag.Int("users", 200, "members per server")
		roles       = flag.Int("roles", 8, "roles per server")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (resolve + mutate)")
		redisAddr   = flag.String("redis-addr", "", "redis address for the shared cache; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gp", "cache key prefix")
		localCache  = flag.Bool("local-cache", false, "use the in-process sharded cache instead of redis")
	)
	flag.Parse()

	if *servers <= 0 || *channels <= 0 || *users <= 0 || *roles <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "servers, channels, users, roles, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	builder := goPerm.New()

	store := directory.NewMemory()
	builder.WithDirectory(store).WithMetricsEnabled(true).WithLatencyHistograms(true)

	var cleanup func()
	if *localCache {
		cleanup = func() {}
		fmt.Println("using in-process sharded cache")
	} else {
		addr := *redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}

		var client redis.UniversalClient
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
				os.Exit(1)
			}
			addr = mr.Addr()
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() {
				_ = client.Close()
				mr.Close()
			}
			fmt.Printf("using miniredis at %s\n", addr)
		} else {
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() { _ = client.Close() }
			fmt.Printf("using redis at %s\n", addr)
		}
		builder.WithCache(cache.NewRedis(client, *prefix, 10*time.Minute))
	}
	defer cleanup()

	fmt.Printf("seeding %d servers x %d channels x %d members...\n", *servers, *channels, *users)
	startSeed := time.Now()
	fx := seed(ctx, store, *servers, *channels, *users, *roles)
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	resolveStats := runResolvePhase(ctx, engine, fx, *ops, *concurrency)
	mutateStats := runMutatePhase(ctx, engine, fx, *ops/10, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("mutate", mutateStats)
	printCounters(engine)
}

func seed(ctx context.Context, store *directory.Memory, servers, channels, users, roleCount int) fixture {
	var fx fixture
	r := rand.New(rand.NewSource(42))

	for s := 0; s < servers; s++ {
		server := store.CreateServer(
			fmt.Sprintf("owner-%d", s),
			fmt.Sprintf("server-%d", s),
			permission.ViewChannel|permission.SendMessages|permission.ReadMessageHistory,
		)
		fx.serverIDs = append(fx.serverIDs, server.ID)

		roleIDs := make([]string, 0, roleCount)
		for i := 0; i < roleCount; i++ {
			role := goPerm.Role{
				ID:          uuid.NewString(),
				ServerID:    server.ID,
				Name:        fmt.Sprintf("role-%d", i),
				Permissions: permission.Mask(r.Uint64()) & (permission.Connect | permission.Speak | permission.ManageMessages | permission.EmbedLinks | permission.AttachFiles),
				Position:    i + 1,
			}
			if err := store.CreateRole(ctx, role); err != nil {
				fatalf("seed role: %v", err)
			}
			roleIDs = append(roleIDs, role.ID)
		}

		for u := 0; u < users; u++ {
			userID := fmt.Sprintf("user-%d-%d", s, u)
			if err := store.AddMember(server.ID, userID); err != nil {
				fatalf("seed member: %v", err)
			}
			if err := store.AddMemberRole(ctx, server.ID, userID, roleIDs[u%len(roleIDs)]); err != nil {
				fatalf("seed assignment: %v", err)
			}
			fx.userIDs = append(fx.userIDs, userID)
		}

		for c := 0; c < channels; c++ {
			channel := goPerm.Channel{
				ID:       uuid.NewString(),
				ServerID: server.ID,
				Type:     goPerm.ChannelText,
				Position: c,
			}
			if err := store.CreateChannel(ctx, channel); err != nil {
				fatalf("seed channel: %v", err)
			}
			// Sprinkle role overwrites so the resolver does real work.
			if err := store.UpsertOverwrite(ctx, goPerm.ChannelOverwrite{
				ChannelID:  channel.ID,
				TargetType: goPerm.TargetRole,
				TargetID:   roleIDs[c%len(roleIDs)],
				Deny:       permission.SendMessages,
			}); err != nil {
				fatalf("seed overwrite: %v", err)
			}
			fx.channelIDs = append(fx.channelIDs, channel.ID)
		}
	}

	return fx
}

func runResolvePhase(ctx context.Context, engine *goPerm.Engine, fx fixture, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				userID := fx.userIDs[r.Intn(len(fx.userIDs))]
				channelID := fx.channelIDs[r.Intn(len(fx.channelIDs))]
				t0 := time.Now()
				_, err := engine.Check(ctx, userID, channelID, permission.SendMessages)
				d := time.Since(t0)
				if err != nil && !isExpectedResolveError(err) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runMutatePhase(ctx context.Context, engine *goPerm.Engine, fx fixture, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				req := goPerm.OverwriteRequest{
					ChannelID: fx.channelIDs[r.Intn(len(fx.channelIDs))],
					UserID:    fx.userIDs[r.Intn(len(fx.userIDs))],
					Allow:     permission.AddReactions,
					Deny:      permission.MentionEveryone,
				}
				t0 := time.Now()
				err := engine.ApplyOverwrite(ctx, req)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// Cross-server lookups in the random mix legitimately resolve to non-members.
func isExpectedResolveError(err error) bool {
	return errors.Is(err, goPerm.ErrNotAMember)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func printCounters(engine *goPerm.Engine) {
	snapshot := engine.MetricsSnapshot()
	fmt.Printf("cache: hits=%d misses=%d\n",
		snapshot.Counters[goPerm.MetricResolveCacheHit],
		snapshot.Counters[goPerm.MetricResolveCacheMiss],
	)
	fmt.Printf("checks: allowed=%d denied=%d not_a_member=%d\n",
		snapshot.Counters[goPerm.MetricCheckAllowed],
		snapshot.Counters[goPerm.MetricCheckDenied],
		snapshot.Counters[goPerm.MetricResolveNotAMember],
	)
	fmt.Printf("mutations: applied=%d rejected=%d invalidations: channel=%d dropped=%d\n",
		snapshot.Counters[goPerm.MetricMutationApplied],
		snapshot.Counters[goPerm.MetricMutationRejected],
		snapshot.Counters[goPerm.MetricInvalidateChannel],
		engine.InvalidationsDropped(),
	)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
