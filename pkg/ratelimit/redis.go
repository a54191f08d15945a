package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "ratelimit:predict:"

// Trim, count and add run as one script so concurrent callers cannot overshoot the limit.
// Entries scored at or before the window start are gone before counting.
const slidingWindowSource = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {0, count}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, ARGV[5])
return {1, count + 1}
`

var slidingWindow = redis.NewScript(slidingWindowSource)

// RedisLimiter is a sliding window log shared by every replica pointing at the same Redis.
type RedisLimiter struct {
	redis        *redis.Client
	rate         Rate
	timeProvider func() time.Time
	uuidProvider func() uuid.UUID
}

type RedisOpts struct {
	TimeProvider func() time.Time
	UuidProvider func() uuid.UUID
}

func NewRedisLimiter(redisClient *redis.Client, rate Rate, opts *RedisOpts) *RedisLimiter {
	var timeProvider func() time.Time
	var uuidProvider func() uuid.UUID
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	} else {
		timeProvider = time.Now
	}
	if opts != nil && opts.UuidProvider != nil {
		uuidProvider = opts.UuidProvider
	} else {
		uuidProvider = uuid.New
	}
	return &RedisLimiter{
		redis:        redisClient,
		rate:         rate,
		timeProvider: timeProvider,
		uuidProvider: uuidProvider,
	}
}

func (l *RedisLimiter) Rate() Rate {
	return l.rate
}

func (l *RedisLimiter) Allow(ctx context.Context, clientKey string) (Decision, error) {
	key := keyPrefix + clientKey
	window := l.rate.Window()
	now := l.timeProvider()
	windowStart := now.Add(-window).UnixMilli()
	requestID := fmt.Sprintf("%d:%s", now.UnixMilli(), l.uuidProvider().String())

	res, err := slidingWindow.Run(ctx, l.redis, []string{key},
		now.UnixMilli(),
		windowStart,
		int64(l.rate.Limit),
		requestID,
		int64(window/time.Millisecond),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	allowed, count, err := parseWindowReply(res)
	if err != nil {
		return Decision{}, err
	}

	resetTime := now.Add(window)
	if !allowed {
		return Decision{
			Allowed:    false,
			Limit:      l.rate.Limit,
			Remaining:  0,
			ResetAt:    resetTime,
			RetryAfter: retryAfter(now, resetTime),
		}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     l.rate.Limit,
		Remaining: max(l.rate.Limit-int(count), 0),
		ResetAt:   resetTime,
	}, nil
}

func parseWindowReply(res interface{}) (bool, int64, error) {
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply %v", res)
	}
	allowed, ok1 := vals[0].(int64)
	count, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply %v", res)
	}
	return allowed == 1, count, nil
}
