package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/NeuralTrust/ToxGuard/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

type RemoteOptions struct {
	BaseURL   string
	ModelName string
	// ProbeLen is the sequence length of the all-padding probe sent at load time
	// to discover the output width.
	ProbeLen int
	Client   httpx.Client
	Breaker  httpx.CircuitBreaker
	Logger   *logrus.Logger
}

// RemoteBackend talks to a TensorFlow Serving compatible REST endpoint.
type RemoteBackend struct {
	baseURL string
	name    string
	probe   int
	client  httpx.Client
	breaker httpx.CircuitBreaker
	logger  *logrus.Logger
	width   atomic.Int64
}

type predictRequest struct {
	Instances [][]int32 `json:"instances"`
}

func NewRemoteBackend(opts RemoteOptions) *RemoteBackend {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &RemoteBackend{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		name:    opts.ModelName,
		probe:   opts.ProbeLen,
		client:  opts.Client,
		breaker: opts.Breaker,
		logger:  logger,
	}
}

func (b *RemoteBackend) Name() string { return "remote" }

func (b *RemoteBackend) Labels() []string { return nil }

func (b *RemoteBackend) OutputWidth() int { return int(b.width.Load()) }

// Load requires an AVAILABLE model version and probes it once for its output width.
func (b *RemoteBackend) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.modelURL(""), nil)
	if err != nil {
		return err
	}
	body, status, err := b.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status endpoint returned %d", ErrBackendUnavailable, status)
	}
	if !hasAvailableVersion(body) {
		return fmt.Errorf("%w: model %q has no AVAILABLE version", ErrBackendUnavailable, b.name)
	}

	rows, err := b.predict(ctx, [][]int32{make([]int32, max(b.probe, 1))})
	if err != nil {
		return fmt.Errorf("probe prediction: %w", err)
	}
	if len(rows[0]) == 0 {
		return fmt.Errorf("%w: probe returned no outputs", ErrOutputMismatch)
	}
	b.width.Store(int64(len(rows[0])))

	b.logger.WithFields(logrus.Fields{
		"url":    b.baseURL,
		"model":  b.name,
		"output": len(rows[0]),
	}).Info("remote model backend ready")
	return nil
}

func (b *RemoteBackend) Predict(ctx context.Context, batch [][]int32) ([][]float64, error) {
	if b.width.Load() == 0 {
		return nil, ErrNotLoaded
	}
	return b.predict(ctx, batch)
}

func (b *RemoteBackend) predict(ctx context.Context, batch [][]int32) ([][]float64, error) {
	if len(batch) == 0 {
		return [][]float64{}, nil
	}
	payload, err := json.Marshal(predictRequest{Instances: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.modelURL(":predict"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := b.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: predict returned %d: %s", ErrBackendUnavailable, status, errorMessage(body))
	}

	rows, err := parsePredictions(body)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(batch) {
		return nil, fmt.Errorf("%w: %d predictions for %d instances", ErrOutputMismatch, len(rows), len(batch))
	}
	return rows, nil
}

// do runs the request through the breaker. 5xx and transport errors count as failures.
func (b *RemoteBackend) do(req *http.Request) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)
	err := b.breaker.Execute(func() error {
		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status = resp.StatusCode
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("upstream status %d", status)
		}
		return nil
	})
	if err != nil {
		b.logger.WithError(err).WithField("url", req.URL.String()).Error("model backend request failed")
		return nil, 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return body, status, nil
}

func (b *RemoteBackend) modelURL(suffix string) string {
	return fmt.Sprintf("%s/v1/models/%s%s", b.baseURL, b.name, suffix)
}

func hasAvailableVersion(body []byte) bool {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return false
	}
	for _, s := range v.GetArray("model_version_status") {
		if string(s.GetStringBytes("state")) == "AVAILABLE" {
			return true
		}
	}
	return false
}

func parsePredictions(body []byte) ([][]float64, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed predict response: %v", ErrBackendUnavailable, err)
	}
	preds := v.Get("predictions")
	if preds == nil {
		return nil, fmt.Errorf("%w: predict response has no predictions", ErrBackendUnavailable)
	}
	arr, err := preds.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: predictions: %v", ErrBackendUnavailable, err)
	}
	rows := make([][]float64, len(arr))
	for i, r := range arr {
		row, err := floats(r)
		if err != nil {
			return nil, fmt.Errorf("%w: predictions[%d]: %v", ErrOutputMismatch, i, err)
		}
		rows[i] = row
	}
	return rows, nil
}

func errorMessage(body []byte) string {
	var p fastjson.Parser
	if v, err := p.ParseBytes(body); err == nil {
		if msg := v.GetStringBytes("error"); msg != nil {
			return string(msg)
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
