package port

import (
	"context"
	"time"
)

// RateLimitStore counts requests in fixed, non-overlapping windows keyed by
// client identifier.
type RateLimitStore interface {
	// Increment records one request against the key's current window,
	// starting a fresh window when none is active. It returns the resulting
	// count within the window and the moment the window resets.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error)
}
