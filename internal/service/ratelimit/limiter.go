package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces calls per key so that at least interval passes between two
// admissions. Keys are typically API hosts.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	m        map[string]*rate.Limiter
}

// New returns a limiter admitting one call per interval per key. A zero
// interval disables throttling.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, m: make(map[string]*rate.Limiter)}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[key]
	if !ok {
		limit := rate.Inf
		if l.interval > 0 {
			limit = rate.Every(l.interval)
		}
		lim = rate.NewLimiter(limit, 1)
		l.m[key] = lim
	}
	return lim
}

// Allow returns true if a call for key may proceed now.
func (l *Limiter) Allow(key string) bool { return l.get(key).Allow() }

// Wait blocks until a call for key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Interval returns the configured spacing.
func (l *Limiter) Interval() time.Duration { return l.interval }
