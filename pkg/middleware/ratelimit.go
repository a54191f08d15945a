package middleware

import (
	"strconv"

	"github.com/NeuralTrust/ToxGuard/pkg/common"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/ToxGuard/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type rateLimitMiddleware struct {
	logger  *logrus.Logger
	limiter ratelimit.Limiter
}

func NewRateLimitMiddleware(logger *logrus.Logger, limiter ratelimit.Limiter) Middleware {
	return &rateLimitMiddleware{
		logger:  logger,
		limiter: limiter,
	}
}

// Middleware keys the budget by client address. A limiter error lets the request
// through and is logged.
func (m *rateLimitMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		decision, err := m.limiter.Allow(c.UserContext(), ip)
		if err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"ip":         ip,
				"request_id": RequestID(c),
			}).Error("rate limiter unavailable, admitting request")
			return c.Next()
		}

		c.Locals(common.RateLimitContextKey, decision)
		c.Set(common.RateLimitLimitHeader, strconv.Itoa(decision.Limit))
		c.Set(common.RateLimitRemainingHeader, strconv.Itoa(decision.Remaining))
		c.Set(common.RateLimitResetHeader, strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			prometheus.RateLimitRejections.Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(decision.RetryAfter.Seconds())))
			m.logger.WithFields(logrus.Fields{
				"ip":          ip,
				"request_id":  RequestID(c),
				"retry_after": decision.RetryAfter.String(),
			}).Warn("rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded: " + m.limiter.Rate().String(),
			})
		}
		return c.Next()
	}
}
