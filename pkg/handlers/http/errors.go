package http

import (
	"context"
	"errors"

	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/request"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/response"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/model"
	"github.com/NeuralTrust/ToxGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	ErrValidationFailed     = "validation failed"
	ErrModelNotLoaded       = "Model not loaded"
	ErrBackendUnavailable   = "Inference backend unavailable"
	ErrInferenceTimeout     = "Inference timed out"
	ErrInternalServer       = "Internal server error"
	ErrMalformedModelOutput = "Model returned malformed output"
)

// statusFor maps domain errors to the HTTP status and message sent to clients.
func statusFor(err error) (int, response.ErrorResponse) {
	var verr *request.ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity, response.ErrorResponse{Error: ErrValidationFailed, Detail: verr.Details}
	case errors.Is(err, classifier.ErrNotLoaded), errors.Is(err, model.ErrNotLoaded):
		return fiber.StatusServiceUnavailable, response.ErrorResponse{Error: ErrModelNotLoaded}
	case errors.Is(err, model.ErrBackendUnavailable):
		return fiber.StatusBadGateway, response.ErrorResponse{Error: ErrBackendUnavailable}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, response.ErrorResponse{Error: ErrInferenceTimeout}
	case errors.Is(err, model.ErrOutputMismatch):
		return fiber.StatusInternalServerError, response.ErrorResponse{Error: ErrMalformedModelOutput}
	case errors.As(err, &ferr):
		return ferr.Code, response.ErrorResponse{Error: ferr.Message}
	default:
		return fiber.StatusInternalServerError, response.ErrorResponse{Error: ErrInternalServer}
	}
}

// ErrorHandler renders errors returned by handlers and by fiber itself as JSON.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := middleware.ApplySecurityHeaders(c)
		status, body := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"path":       c.Path(),
				"request_id": requestID,
			}).Error("request failed")
		}
		return c.Status(status).JSON(body)
	}
}
