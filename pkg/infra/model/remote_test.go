package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/infra/httpx"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/httpx/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type tfServing struct {
	predictStatus atomic.Int32
	width         int
	calls         atomic.Int32
}

func (s *tfServing) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models/toxguard", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"model_version_status":[{"version":"1","state":"AVAILABLE","status":{"error_code":"OK"}}]}`))
	})
	mux.HandleFunc("/v1/models/toxguard:predict", func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if code := s.predictStatus.Load(); code != 0 {
			w.WriteHeader(int(code))
			_, _ = w.Write([]byte(`{"error":"backend exploded"}`))
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req struct {
			Instances [][]int32 `json:"instances"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		preds := make([][]float64, len(req.Instances))
		for i, inst := range req.Instances {
			row := make([]float64, s.width)
			if len(inst) > 0 && inst[0] != 0 {
				for k := range row {
					row[k] = 0.9
				}
			}
			preds[i] = row
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": preds})
	})
	return mux
}

func newRemote(url string, breaker httpx.CircuitBreaker) *RemoteBackend {
	if breaker == nil {
		breaker = httpx.NewCircuitBreaker("test", time.Minute, 5, nil)
	}
	return NewRemoteBackend(RemoteOptions{
		BaseURL:   url + "/",
		ModelName: "toxguard",
		ProbeLen:  4,
		Client:    httpx.NewFastHTTPClient(httpx.WithTimeout(2 * time.Second)),
		Breaker:   breaker,
	})
}

func TestRemoteBackend_LoadAndPredict(t *testing.T) {
	fake := &tfServing{width: 6}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	b := newRemote(srv.URL, nil)
	_, err := b.Predict(context.Background(), [][]int32{{1}})
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, b.Load(context.Background()))
	assert.Equal(t, 6, b.OutputWidth())
	assert.Nil(t, b.Labels())

	rows, err := b.Predict(context.Background(), [][]int32{{0, 0, 0, 0}, {7, 0, 0, 0}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0][0])
	assert.Equal(t, 0.9, rows[1][5])
}

func TestRemoteBackend_PredictServerError(t *testing.T) {
	fake := &tfServing{width: 6}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	b := newRemote(srv.URL, nil)
	require.NoError(t, b.Load(context.Background()))

	fake.predictStatus.Store(http.StatusBadRequest)
	_, err := b.Predict(context.Background(), [][]int32{{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestRemoteBackend_BreakerOpens(t *testing.T) {
	fake := &tfServing{width: 6}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	b := newRemote(srv.URL, httpx.NewCircuitBreaker("test", time.Minute, 2, nil))
	require.NoError(t, b.Load(context.Background()))

	fake.predictStatus.Store(http.StatusServiceUnavailable)
	before := fake.calls.Load()
	for i := 0; i < 3; i++ {
		_, err := b.Predict(context.Background(), [][]int32{{1}})
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	}
	assert.Equal(t, before+2, fake.calls.Load(), "third call short-circuits")
}

func TestRemoteBackend_LoadFailures(t *testing.T) {
	t.Run("no available version", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"model_version_status":[{"version":"1","state":"LOADING"}]}`))
		}))
		defer srv.Close()
		assert.ErrorIs(t, newRemote(srv.URL, nil).Load(context.Background()), ErrBackendUnavailable)
	})

	t.Run("model not found", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		assert.ErrorIs(t, newRemote(srv.URL, nil).Load(context.Background()), ErrBackendUnavailable)
	})
}

func TestRemoteBackend_TransportError(t *testing.T) {
	client := new(mocks.Client)
	client.On("Do", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	b := NewRemoteBackend(RemoteOptions{
		BaseURL:   "http://tfserving:8501",
		ModelName: "toxguard",
		ProbeLen:  4,
		Client:    client,
		Breaker:   httpx.NewCircuitBreaker("test", time.Minute, 5, nil),
	})
	err := b.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	client.AssertExpectations(t)
}

func TestParsePredictions(t *testing.T) {
	rows, err := parsePredictions([]byte(`{"predictions":[[0.1,0.2],[0.3,0.4]]}`))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, rows)

	_, err = parsePredictions([]byte(`{"outputs":[]}`))
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = parsePredictions([]byte(`{"predictions":[["x"]]}`))
	assert.ErrorIs(t, err, ErrOutputMismatch)
}
