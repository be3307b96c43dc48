package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-auth/internal/core/port"
)

// FixedWindowConfig defines configuration for the fixed window counter store.
type FixedWindowConfig struct {
	KeyPrefix string
}

// RateLimitStore persists fixed-window counters in Redis so limits hold
// across replicas. The first increment of a window sets its expiry; the key's
// remaining TTL yields the reset time.
type RateLimitStore struct {
	client *redis.Client
	cfg    FixedWindowConfig
}

// NewRateLimitStore constructs a store using the provided Redis client and config.
func NewRateLimitStore(client *redis.Client, cfg FixedWindowConfig) *RateLimitStore {
	return &RateLimitStore{client: client, cfg: cfg}
}

// Increment counts one attempt against the key's current fixed window.
func (r *RateLimitStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	if window <= 0 {
		return 0, time.Time{}, errors.New("window must be positive")
	}

	storageKey := r.key(key)

	count, err := r.client.Incr(ctx, storageKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 {
		if err := r.client.PExpire(ctx, storageKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		return int(count), now.Add(window), nil
	}

	ttl, err := r.client.PTTL(ctx, storageKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis pttl: %w", err)
	}
	if ttl <= 0 {
		// Counter survived without an expiry (e.g. a crashed PExpire).
		// Re-arm it rather than letting the key live forever.
		if err := r.client.PExpire(ctx, storageKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		ttl = window
	}

	return int(count), now.Add(ttl), nil
}

func (r *RateLimitStore) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return fmt.Sprintf("ratelimit:%s", identifier)
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
