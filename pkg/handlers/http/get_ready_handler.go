package http

import (
	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getReadyHandler struct {
	logger     *logrus.Logger
	classifier classifier.Service
}

func NewGetReadyHandler(logger *logrus.Logger, classifier classifier.Service) Handler {
	return &getReadyHandler{
		logger:     logger,
		classifier: classifier,
	}
}

// Handle @Summary Readiness check
// @Description Returns 503 until the model and tokenizer are loaded
// @Tags Health
// @Produce json
// @Success 200 {object} response.HealthResponse
// @Failure 503 {object} response.HealthResponse
// @Router /ready [get]
func (h *getReadyHandler) Handle(c *fiber.Ctx) error {
	if !h.classifier.IsLoaded() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response.HealthResponse{
			Status:      "loading",
			ModelLoaded: false,
		})
	}
	return c.Status(fiber.StatusOK).JSON(response.HealthResponse{
		Status:      "ready",
		ModelLoaded: true,
	})
}
