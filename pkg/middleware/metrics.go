package middleware

import (
	"strconv"

	"github.com/NeuralTrust/ToxGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type metricsMiddleware struct {
	logger *logrus.Logger
}

func NewMetricsMiddleware(logger *logrus.Logger) Middleware {
	return &metricsMiddleware{logger: logger}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := requestStart(c)
		err := c.Next()

		status := statusOf(c, err)

		route := routeLabel(c)
		prometheus.RequestTotal.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
		prometheus.RequestLatency.WithLabelValues(route).
			Observe(elapsedMillis(start))
		return err
	}
}

// routeLabel uses the matched route pattern so unknown paths do not explode
// label cardinality.
func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return "unmatched"
}
