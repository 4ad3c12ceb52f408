package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the number of tracked keys above which expired windows
// are pruned.
const sweepThreshold = 10000

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed window counter per key.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		if len(l.windows) >= sweepThreshold {
			l.sweepLocked(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}

	resetAt := w.start.Add(l.period)
	if w.count >= l.limit {
		return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt, Limit: l.limit}, nil
	}
	w.count++
	return &Result{Allowed: true, Remaining: l.limit - w.count, ResetAt: resetAt, Limit: l.limit}, nil
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, key)
		}
	}
}
