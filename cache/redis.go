package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goPerm/permission"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis invalidation round-trip fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

const invalidationChannelSuffix = ":inv"

// Redis is a Redis-backed resolution cache for multi-instance deployments.
//
// Key layout under the configured prefix:
//
//	{prefix}:e:{channelID}:{userID} -> effective mask, TTL-bounded
//	{prefix}:s:{serverID}           -> set of entry keys for server sweeps
//
// Every invalidation is also published on {prefix}:inv so sibling instances
// running a local cache layer can apply it through a [Subscriber]. Get and
// Put are best-effort: a Redis failure degrades to a cache miss, never to a
// permission error.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a [Redis] cache over an existing client. The client is
// owned by the caller; Close does not release it.
func NewRedis(client redis.UniversalClient, prefix string, ttlCeiling time.Duration) *Redis {
	if prefix == "" {
		prefix = "goperm"
	}
	if ttlCeiling <= 0 {
		ttlCeiling = defaultTTLCeiling
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttlCeiling,
	}
}

func (r *Redis) entryKey(channelID, userID string) string {
	return r.prefix + ":e:" + channelID + ":" + userID
}

func (r *Redis) serverKey(serverID string) string {
	return r.prefix + ":s:" + serverID
}

func (r *Redis) invalidationChannel() string {
	return r.prefix + invalidationChannelSuffix
}

// Get returns the cached mask for (userID, channelID), treating any Redis
// failure or malformed value as a miss.
func (r *Redis) Get(ctx context.Context, userID, channelID string) (permission.Mask, bool) {
	raw, err := r.client.Get(ctx, r.entryKey(channelID, userID)).Result()
	if err != nil {
		return 0, false
	}

	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return permission.Mask(value), true
}

// Put stores a mask and indexes its key under the owning server. Best-effort.
func (r *Redis) Put(ctx context.Context, userID, channelID, serverID string, mask permission.Mask) {
	entryKey := r.entryKey(channelID, userID)

	_, _ = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey, strconv.FormatUint(mask.Raw(), 10), r.ttl)
		pipe.SAdd(ctx, r.serverKey(serverID), entryKey)
		pipe.Expire(ctx, r.serverKey(serverID), r.ttl)
		return nil
	})
}

// InvalidateChannel deletes every entry for the channel via a SCAN sweep and
// broadcasts the invalidation.
func (r *Redis) InvalidateChannel(ctx context.Context, channelID string) error {
	pattern := r.entryKey(channelID, "*")

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 512).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	r.publish(ctx, "c|"+channelID)
	return nil
}

// InvalidateServer deletes every indexed entry under the server and
// broadcasts the invalidation.
func (r *Redis) InvalidateServer(ctx context.Context, serverID string) error {
	serverKey := r.serverKey(serverID)

	keys, err := r.client.SMembers(ctx, serverKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, serverKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	r.publish(ctx, "s|"+serverID)
	return nil
}

// InvalidateUserServer deletes one user's indexed entries under the server
// and broadcasts the invalidation.
func (r *Redis) InvalidateUserServer(ctx context.Context, serverID, userID string) error {
	serverKey := r.serverKey(serverID)

	keys, err := r.client.SMembers(ctx, serverKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	suffix := ":" + userID
	matched := keys[:0:0]
	for _, key := range keys {
		if strings.HasSuffix(key, suffix) {
			matched = append(matched, key)
		}
	}

	if len(matched) > 0 {
		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, matched...)
			pipe.SRem(ctx, serverKey, toAnySlice(matched)...)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	r.publish(ctx, "m|"+serverID+"|"+userID)
	return nil
}

// Close implements the cache interface. The Redis client is caller-owned.
func (r *Redis) Close() {}

func (r *Redis) publish(ctx context.Context, payload string) {
	// Fan-out is at-least-once and advisory; subscribers fall back to their
	// TTL ceiling when a message is lost.
	_ = r.client.Publish(ctx, r.invalidationChannel(), payload).Err()
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
