package mocks

import (
	"context"

	"github.com/NeuralTrust/ToxGuard/pkg/classifier"
	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) Predict(ctx context.Context, texts []string, threshold float64) ([]classifier.ClassificationResult, error) {
	args := m.Called(ctx, texts, threshold)
	results, _ := args.Get(0).([]classifier.ClassificationResult) //nolint:errcheck
	return results, args.Error(1)
}

func (m *Service) IsLoaded() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *Service) BackendName() string {
	args := m.Called()
	return args.String(0)
}
