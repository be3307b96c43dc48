package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/port"
)

const defaultSweepInterval = time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// RateLimitStore is a process-local fixed-window counter store. Windows for
// idle keys are evicted lazily during Increment so the map stays bounded by
// recent traffic.
type RateLimitStore struct {
	mu            sync.Mutex
	windows       map[string]*window
	sweepInterval time.Duration
	nextSweep     time.Time
}

// NewRateLimitStore constructs an in-memory store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		windows:       make(map[string]*window),
		sweepInterval: defaultSweepInterval,
	}
}

// Increment counts one attempt against the key's current fixed window,
// opening a fresh window when none exists or the previous one has elapsed.
func (s *RateLimitStore) Increment(_ context.Context, key string, windowSize time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 0, resetAt: now.Add(windowSize)}
		s.windows[key] = w
	}

	w.count++
	return w.count, w.resetAt, nil
}

// sweep drops elapsed windows. Runs at most once per sweepInterval so a hot
// path never pays for a full map scan on every request.
func (s *RateLimitStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(s.sweepInterval)

	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}

// Len reports the number of tracked windows.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
