package mocks

import (
	"context"

	"github.com/NeuralTrust/ToxGuard/pkg/ratelimit"
	"github.com/stretchr/testify/mock"
)

type Limiter struct {
	mock.Mock
}

func (m *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	args := m.Called(ctx, key)
	d, _ := args.Get(0).(ratelimit.Decision) //nolint:errcheck
	return d, args.Error(1)
}

func (m *Limiter) Rate() ratelimit.Rate {
	args := m.Called()
	r, _ := args.Get(0).(ratelimit.Rate) //nolint:errcheck
	return r
}
