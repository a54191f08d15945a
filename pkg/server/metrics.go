package server

import (
	"github.com/NeuralTrust/ToxGuard/pkg/config"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// NewMetricsServer serves the Prometheus registry on its own listener so scraping
// bypasses auth and rate limiting.
func NewMetricsServer(cfg *config.Config, logger *logrus.Logger) *BaseServer {
	s := NewBaseServer(cfg, logger, cfg.Metrics.Port)
	s.Router.Use(recover.New())

	handler := fasthttpadaptor.NewFastHTTPHandler(prometheus.Handler())
	s.Router.Get("/metrics", func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	})
	return s
}
