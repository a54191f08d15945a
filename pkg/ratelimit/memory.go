package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/infra/cache"
)

const sweepEvery = 1024

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a per-process fixed window limiter. The window for a key opens
// on its first request.
type MemoryLimiter struct {
	rate    Rate
	windows *cache.TTLMap[window]
	now     func() time.Time
	calls   atomic.Uint64
}

type MemoryOpts struct {
	TimeProvider func() time.Time
}

func NewMemoryLimiter(rate Rate, opts *MemoryOpts) *MemoryLimiter {
	now := time.Now
	if opts != nil && opts.TimeProvider != nil {
		now = opts.TimeProvider
	}
	return &MemoryLimiter{
		rate:    rate,
		windows: cache.NewTTLMap[window](rate.Window(), cache.WithClock[window](now)),
		now:     now,
	}
}

func (l *MemoryLimiter) Rate() Rate {
	return l.rate
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if l.calls.Add(1)%sweepEvery == 0 {
		l.windows.Sweep()
	}

	now := l.now()
	allowed := false
	w := l.windows.Compute(key, func(w window, expiresAt time.Time, found bool) (window, time.Time) {
		if !found {
			allowed = true
			return window{start: now, count: 1}, now.Add(l.rate.Window())
		}
		if w.count < l.rate.Limit {
			allowed = true
			w.count++
		}
		return w, expiresAt
	})

	reset := w.start.Add(l.rate.Window())
	d := Decision{
		Allowed:   allowed,
		Limit:     l.rate.Limit,
		Remaining: l.rate.Limit - w.count,
		ResetAt:   reset,
	}
	if !allowed {
		d.RetryAfter = retryAfter(now, reset)
	}
	return d, nil
}
