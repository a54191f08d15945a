package ratelimit_test

import (
	"testing"
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in     string
		limit  int
		window time.Duration
		str    string
	}{
		{"30/minute", 30, time.Minute, "30 per 1 minute"},
		{"30 per minute", 30, time.Minute, "30 per 1 minute"},
		{"5/second", 5, time.Second, "5 per 1 second"},
		{"100/2 hours", 100, 2 * time.Hour, "100 per 2 hour"},
		{"1000 per day", 1000, 24 * time.Hour, "1000 per 1 day"},
		{" 10 / Minutes ", 10, time.Minute, "10 per 1 minute"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ratelimit.ParseRate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.limit, r.Limit)
			assert.Equal(t, tt.window, r.Window())
			assert.Equal(t, tt.str, r.String())
		})
	}
}

func TestParseRate_Invalid(t *testing.T) {
	for _, in := range []string{"", "thirty/minute", "0/minute", "30/fortnight", "30", "30/0 minutes", "-1/minute"} {
		t.Run(in, func(t *testing.T) {
			_, err := ratelimit.ParseRate(in)
			assert.ErrorIs(t, err, ratelimit.ErrInvalidRate)
		})
	}
}
