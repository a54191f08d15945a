package middleware

import (
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/common"
	"github.com/NeuralTrust/ToxGuard/pkg/ratelimit"
	"github.com/NeuralTrust/ToxGuard/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type accessLogMiddleware struct {
	logger *logrus.Logger
}

func NewAccessLogMiddleware(logger *logrus.Logger) Middleware {
	return &accessLogMiddleware{logger: logger}
}

func (m *accessLogMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(common.LatencyContextKey, start)
		err := c.Next()

		status := statusOf(c, err)

		fields := logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": elapsedMillis(start),
			"request_id": RequestID(c),
			"ip":         c.IP(),
		}
		if d, ok := c.Locals(common.RateLimitContextKey).(ratelimit.Decision); ok {
			fields["rate_limit_remaining"] = d.Remaining
		}
		if ua := utils.ParseUserAgent(c.Get(fiber.HeaderUserAgent), c.Get(fiber.HeaderAcceptLanguage)); ua != nil {
			fields["device"] = ua.Device
			fields["os"] = ua.OS
			fields["browser"] = ua.Browser
			fields["locale"] = ua.Locale
		}

		entry := m.logger.WithFields(fields)
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("request completed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
		return err
	}
}
