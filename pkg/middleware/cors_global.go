package middleware

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var corsMethods = []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}

type corsGlobalMiddleware struct {
	allowOrigins []string
	allowMethods string
	maxAge       string
}

// NewCORSGlobalMiddleware matches Origin against glob patterns such as
// "chrome-extension://*". A bare "*" admits every origin.
func NewCORSGlobalMiddleware(allowOrigins []string, maxAge string) Middleware {
	return &corsGlobalMiddleware{
		allowOrigins: allowOrigins,
		allowMethods: strings.Join(corsMethods, ", "),
		maxAge:       maxAge,
	}
}

func (m *corsGlobalMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		c.Vary(fiber.HeaderOrigin)
		if !m.allowed(origin) {
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)

		reqMethod := c.Get(fiber.HeaderAccessControlRequestMethod)
		if c.Method() != fiber.MethodOptions || reqMethod == "" {
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowMethods, m.allowMethods)
		if reqHeaders := c.Get(fiber.HeaderAccessControlRequestHeaders); reqHeaders != "" {
			c.Set(fiber.HeaderAccessControlAllowHeaders, reqHeaders)
		} else {
			c.Set(fiber.HeaderAccessControlAllowHeaders, fiber.HeaderContentType)
		}
		if m.maxAge != "" {
			c.Set(fiber.HeaderAccessControlMaxAge, m.maxAge)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (m *corsGlobalMiddleware) allowed(origin string) bool {
	for _, pattern := range m.allowOrigins {
		if pattern == "*" || strings.EqualFold(pattern, origin) {
			return true
		}
		if ok, err := path.Match(pattern, origin); err == nil && ok {
			return true
		}
	}
	return false
}
