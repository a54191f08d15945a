package http

import (
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/NeuralTrust/ToxGuard/pkg/common"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/request"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/response"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type PredictHandlerDeps struct {
	Logger      *logrus.Logger
	Classifier  classifier.Service
	MaxComments int
}

type predictHandler struct {
	logger     *logrus.Logger
	classifier classifier.Service
	parser     *request.PredictParser
}

func NewPredictHandler(deps PredictHandlerDeps) Handler {
	return &predictHandler{
		logger:     deps.Logger,
		classifier: deps.Classifier,
		parser:     request.NewPredictParser(deps.MaxComments),
	}
}

// Handle @Summary Classify comments
// @Description Scores a batch of comments against the toxicity categories
// @Tags Predict
// @Accept json
// @Produce json
// @Param X-API-Key header string false "API key, not required in dev mode"
// @Param request body request.PredictRequest true "Comments to classify"
// @Success 200 {object} response.PredictResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /predict [post]
func (h *predictHandler) Handle(c *fiber.Ctx) error {
	req, err := h.parser.Parse(c.Body())
	if err != nil {
		return h.fail(c, err)
	}

	if !h.classifier.IsLoaded() {
		return h.fail(c, classifier.ErrNotLoaded)
	}

	prometheus.BatchSize.Observe(float64(len(req.Comments)))
	start := time.Now()
	results, err := h.classifier.Predict(c.UserContext(), req.Comments, req.EffectiveThreshold())
	prometheus.InferenceLatency.WithLabelValues(h.classifier.BackendName()).
		Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		return h.fail(c, err)
	}

	for _, r := range results {
		prometheus.Predictions.WithLabelValues(string(r.Severity)).Inc()
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": c.Locals(common.RequestIDContextKey),
		"comments":   len(req.Comments),
		"threshold":  req.EffectiveThreshold(),
		"duration":   time.Since(start).String(),
	}).Debug("predict completed")

	return c.Status(fiber.StatusOK).JSON(response.PredictResponse{Results: results})
}

func (h *predictHandler) fail(c *fiber.Ctx, err error) error {
	status, body := statusFor(err)
	entry := h.logger.WithError(err).WithField("request_id", c.Locals(common.RequestIDContextKey))
	if status >= fiber.StatusInternalServerError {
		entry.Error("predict failed")
	} else {
		entry.Debug("predict rejected")
	}
	return c.Status(status).JSON(body)
}
