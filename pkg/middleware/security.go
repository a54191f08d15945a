package middleware

import (
	"github.com/NeuralTrust/ToxGuard/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type securityMiddleware struct {
	logger *logrus.Logger
}

func NewSecurityMiddleware(logger *logrus.Logger) Middleware {
	return &securityMiddleware{
		logger: logger,
	}
}

// Middleware sets the headers before calling the chain so they survive error
// handlers, 404s and recovered panics.
func (m *securityMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ApplySecurityHeaders(c)
		return c.Next()
	}
}

// ApplySecurityHeaders stamps the security headers and a fresh request id unless the
// response already carries one. Errors raised before routing (oversized bodies,
// malformed requests) only reach the error handler, which calls this too.
func ApplySecurityHeaders(c *fiber.Ctx) string {
	if id := RequestID(c); id != "" {
		return id
	}
	requestID := uuid.NewString()
	c.Locals(common.RequestIDContextKey, requestID)

	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set(fiber.HeaderReferrerPolicy, "strict-origin-when-cross-origin")
	c.Set(fiber.HeaderXRequestID, requestID)
	return requestID
}

func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(common.RequestIDContextKey).(string) //nolint:errcheck
	return id
}
