package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/NeuralTrust/ToxGuard/pkg/config"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidArtifact    = errors.New("invalid model artifact")
	ErrBackendUnavailable = errors.New("model backend unavailable")
	ErrOutputMismatch     = errors.New("model output shape mismatch")
	ErrNotLoaded          = errors.New("model backend not loaded")
)

// Backend scores a batch of padded token sequences. Each output row holds one
// probability per category, in category order.
//
//go:generate mockery --name=Backend --dir=. --output=./mocks --filename=backend_mock.go --case=underscore --with-expecter
type Backend interface {
	Name() string
	Load(ctx context.Context) error
	Predict(ctx context.Context, batch [][]int32) ([][]float64, error)
	// OutputWidth is valid after Load.
	OutputWidth() int
	// Labels returns the category names the artifact declares, or nil.
	Labels() []string
}

// NewBackend builds the backend selected by MODEL_BACKEND.
func NewBackend(cfg config.ModelConfig, logger *logrus.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return NewLocalBackend(cfg.Path), nil
	case config.BackendRemote:
		client := httpx.NewFastHTTPClient(
			httpx.WithTimeout(cfg.Timeout),
			httpx.WithMaxConnsPerHost(cfg.MaxConns),
			httpx.WithUserAgent("toxguard"),
		)
		breaker := httpx.NewCircuitBreaker("model-"+cfg.RemoteName, cfg.BreakerTimeout, cfg.BreakerFailures, logger)
		return NewRemoteBackend(RemoteOptions{
			BaseURL:   cfg.RemoteURL,
			ModelName: cfg.RemoteName,
			ProbeLen:  cfg.MaxSequenceLength,
			Client:    client,
			Breaker:   breaker,
			Logger:    logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
