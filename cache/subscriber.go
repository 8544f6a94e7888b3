package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Invalidator is the subset of the resolution cache a [Subscriber] applies
// remote invalidations to. Both [Memory] and goPerm.ResolutionCache satisfy it.
type Invalidator interface {
	InvalidateChannel(ctx context.Context, channelID string) error
	InvalidateServer(ctx context.Context, serverID string) error
	InvalidateUserServer(ctx context.Context, serverID, userID string) error
}

// Subscriber listens on a [Redis] cache's invalidation channel and replays
// each message into a local cache layer. It is the receiving half of the
// multi-instance fan-out: instances that resolve against a local [Memory]
// cache run one Subscriber per process.
type Subscriber struct {
	pubsub *redis.PubSub
	local  Invalidator

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSubscriber subscribes to prefix's invalidation channel and starts the
// replay loop. Callers must Close it when done.
func NewSubscriber(client redis.UniversalClient, prefix string, local Invalidator) *Subscriber {
	if prefix == "" {
		prefix = "goperm"
	}

	s := &Subscriber{
		pubsub: client.Subscribe(context.Background(), prefix+invalidationChannelSuffix),
		local:  local,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Subscriber) run() {
	defer s.wg.Done()

	for msg := range s.pubsub.Channel() {
		s.apply(msg.Payload)
	}
}

// apply decodes one wire payload. Unknown shapes are ignored: a newer writer
// must not be able to wedge an older subscriber.
func (s *Subscriber) apply(payload string) {
	parts := strings.SplitN(payload, "|", 3)
	ctx := context.Background()

	switch {
	case len(parts) == 2 && parts[0] == "c":
		_ = s.local.InvalidateChannel(ctx, parts[1])
	case len(parts) == 2 && parts[0] == "s":
		_ = s.local.InvalidateServer(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "m":
		_ = s.local.InvalidateUserServer(ctx, parts[1], parts[2])
	}
}

// Close unsubscribes and waits for the replay loop to drain.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		_ = s.pubsub.Close()
		s.wg.Wait()
	})
}
