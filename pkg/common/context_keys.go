package common

type contextKey string

const (
	RequestIDContextKey contextKey = "request_id"
	LatencyContextKey   contextKey = "__execution_time"
	RateLimitContextKey contextKey = "rate_limit"
)
