package middleware

import (
	"errors"
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/common"
	"github.com/gofiber/fiber/v2"
)

type Middleware interface {
	Middleware() fiber.Handler
}

// Transport groups the middlewares the router mounts. Global ones wrap every route,
// the rest are attached to protected routes only.
type Transport struct {
	SecurityMiddleware  Middleware
	AccessLogMiddleware Middleware
	MetricsMiddleware   Middleware
	RecoverMiddleware   Middleware
	CORSMiddleware      Middleware
	RateLimitMiddleware Middleware
	AuthMiddleware      Middleware
}

// Global returns the handlers for app.Use, outermost first.
func (t *Transport) Global() []interface{} {
	return handlers(
		t.SecurityMiddleware,
		t.AccessLogMiddleware,
		t.MetricsMiddleware,
		t.RecoverMiddleware,
		t.CORSMiddleware,
	)
}

// Protected returns the rate limit and auth handlers, in that order.
func (t *Transport) Protected() []fiber.Handler {
	var out []fiber.Handler
	for _, m := range []Middleware{t.RateLimitMiddleware, t.AuthMiddleware} {
		if m != nil {
			out = append(out, m.Middleware())
		}
	}
	return out
}

func handlers(middlewares ...Middleware) []interface{} {
	var out []interface{}
	for _, m := range middlewares {
		if m != nil {
			out = append(out, m.Middleware())
		}
	}
	return out
}

// statusOf reports the status the client will see once the error handler has run.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// requestStart is the time the access log stamped on the request, or now when the
// access log is not mounted.
func requestStart(c *fiber.Ctx) time.Time {
	if start, ok := c.Locals(common.LatencyContextKey).(time.Time); ok {
		return start
	}
	return time.Now()
}

func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
