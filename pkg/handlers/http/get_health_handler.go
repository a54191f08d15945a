package http

import (
	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getHealthHandler struct {
	logger     *logrus.Logger
	classifier classifier.Service
}

func NewGetHealthHandler(logger *logrus.Logger, classifier classifier.Service) Handler {
	return &getHealthHandler{
		logger:     logger,
		classifier: classifier,
	}
}

// Handle @Summary Health check
// @Description Liveness probe. Always 200 while the process serves requests.
// @Tags Health
// @Produce json
// @Success 200 {object} response.HealthResponse
// @Router /health [get]
func (h *getHealthHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(response.HealthResponse{
		Status:      "ok",
		ModelLoaded: h.classifier.IsLoaded(),
	})
}
