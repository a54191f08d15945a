package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Initialize()
		Initialize()
	})
}

func TestHandlerExposesToxGuardMetrics(t *testing.T) {
	Predictions.WithLabelValues("toxic").Inc()
	RateLimitRejections.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `toxguard_predictions_total{severity="toxic"}`)
	assert.Contains(t, rec.Body.String(), "toxguard_rate_limit_rejections_total")
}
