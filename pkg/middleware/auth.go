package middleware

import (
	"crypto/subtle"

	"github.com/NeuralTrust/ToxGuard/pkg/common"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const unauthorizedMessage = "Invalid or missing API key. Include 'X-API-Key' header."

type authMiddleware struct {
	logger  *logrus.Logger
	apiKey  []byte
	devMode bool
}

func NewAuthMiddleware(logger *logrus.Logger, apiKey string, devMode bool) Middleware {
	return &authMiddleware{
		logger:  logger,
		apiKey:  []byte(apiKey),
		devMode: devMode,
	}
}

func (m *authMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.devMode {
			return c.Next()
		}

		provided := c.Get(common.APIKeyHeader)
		if provided == "" || len(m.apiKey) == 0 ||
			subtle.ConstantTimeCompare([]byte(provided), m.apiKey) != 1 {
			prometheus.AuthFailures.Inc()
			m.logger.WithFields(logrus.Fields{
				"path":       c.Path(),
				"ip":         c.IP(),
				"request_id": RequestID(c),
				"key_sent":   provided != "",
			}).Debug("rejected request with invalid api key")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}
		return c.Next()
	}
}
