package response

import (
	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/NeuralTrust/ToxGuard/pkg/handlers/http/request"
)

type PredictResponse struct {
	Results []classifier.ClassificationResult `json:"results"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type ErrorResponse struct {
	Error  string                     `json:"error"`
	Detail []request.ValidationDetail `json:"detail,omitempty"`
}
