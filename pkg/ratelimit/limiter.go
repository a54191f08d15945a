package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

//go:generate mockery --name=Limiter --dir=. --output=./mocks --filename=limiter_mock.go --case=underscore
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Rate() Rate
}

func retryAfter(now, reset time.Time) time.Duration {
	d := reset.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d.Truncate(time.Second)
}
