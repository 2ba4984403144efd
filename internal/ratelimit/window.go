package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
)

// SlidingWindow is an in-process limiter used when Redis is absent.
type SlidingWindow struct {
	mu     sync.Mutex
	clock  clock.Clock
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

func NewSlidingWindow(c clock.Clock, limit int, window time.Duration) *SlidingWindow {
	if c == nil {
		c = clock.New()
	}
	return &SlidingWindow{
		clock:  c,
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

func (w *SlidingWindow) Allow(_ context.Context, key string) (*Result, error) {
	now := w.clock.Now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.hits[key][:0]
	for _, at := range w.hits[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= w.limit {
		w.hits[key] = kept
		return &Result{
			Allowed:    false,
			Limit:      w.limit,
			Remaining:  0,
			RetryAfter: kept[0].Add(w.window).Sub(now),
		}, nil
	}

	kept = append(kept, now)
	w.hits[key] = kept
	return &Result{
		Allowed:   true,
		Limit:     w.limit,
		Remaining: w.limit - len(kept),
	}, nil
}
