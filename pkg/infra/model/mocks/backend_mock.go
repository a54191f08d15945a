package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type Backend struct {
	mock.Mock
}

func (m *Backend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Backend) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Backend) Predict(ctx context.Context, batch [][]int32) ([][]float64, error) {
	args := m.Called(ctx, batch)
	rows, _ := args.Get(0).([][]float64) //nolint:errcheck
	return rows, args.Error(1)
}

func (m *Backend) OutputWidth() int {
	args := m.Called()
	return args.Int(0)
}

func (m *Backend) Labels() []string {
	args := m.Called()
	labels, _ := args.Get(0).([]string) //nolint:errcheck
	return labels
}
