package model

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/valyala/fastjson"
)

const (
	poolingSum  = "sum"
	poolingMean = "mean"
)

// LocalBackend evaluates an exported bag-of-tokens linear head in process:
// p_k = sigmoid(bias_k + pool(w[t]_k for every non-padding token t)).
//
// Artifact layout:
//
//	{"labels": [...], "pooling": "sum", "bias": [b0..b5], "weights": {"<token id>": [w0..w5]}}
type LocalBackend struct {
	path string

	mu      sync.RWMutex
	loaded  bool
	labels  []string
	pooling string
	bias    []float64
	weights map[int32][]float64
}

func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{path: path}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Load(_ context.Context) error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read model %s: %w", b.path, err)
	}
	return b.parse(data)
}

func (b *LocalBackend) parse(data []byte) error {
	var p fastjson.Parser
	root, err := p.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	bias, err := floats(root.Get("bias"))
	if err != nil {
		return fmt.Errorf("%w: bias: %v", ErrInvalidArtifact, err)
	}
	if len(bias) == 0 {
		return fmt.Errorf("%w: bias is empty", ErrInvalidArtifact)
	}

	pooling := poolingSum
	if v := root.Get("pooling"); v != nil {
		pooling = string(v.GetStringBytes())
	}
	if pooling != poolingSum && pooling != poolingMean {
		return fmt.Errorf("%w: unknown pooling %q", ErrInvalidArtifact, pooling)
	}

	var labels []string
	if v := root.Get("labels"); v != nil {
		arr, err := v.Array()
		if err != nil {
			return fmt.Errorf("%w: labels: %v", ErrInvalidArtifact, err)
		}
		for _, l := range arr {
			labels = append(labels, string(l.GetStringBytes()))
		}
		if len(labels) != len(bias) {
			return fmt.Errorf("%w: %d labels for %d outputs", ErrInvalidArtifact, len(labels), len(bias))
		}
	}

	wv := root.Get("weights")
	if wv == nil {
		return fmt.Errorf("%w: weights missing", ErrInvalidArtifact)
	}
	obj, err := wv.Object()
	if err != nil {
		return fmt.Errorf("%w: weights: %v", ErrInvalidArtifact, err)
	}
	weights := make(map[int32][]float64, obj.Len())
	var visitErr error
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		id, err := strconv.ParseInt(string(key), 10, 32)
		if err != nil || id <= 0 {
			visitErr = fmt.Errorf("%w: bad token id %q", ErrInvalidArtifact, key)
			return
		}
		row, err := floats(v)
		if err != nil {
			visitErr = fmt.Errorf("%w: weights[%s]: %v", ErrInvalidArtifact, key, err)
			return
		}
		if len(row) != len(bias) {
			visitErr = fmt.Errorf("%w: weights[%s] has %d outputs, want %d", ErrInvalidArtifact, key, len(row), len(bias))
			return
		}
		weights[int32(id)] = row
	})
	if visitErr != nil {
		return visitErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels = labels
	b.pooling = pooling
	b.bias = bias
	b.weights = weights
	b.loaded = true
	return nil
}

func (b *LocalBackend) OutputWidth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bias)
}

func (b *LocalBackend) Labels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.labels
}

func (b *LocalBackend) Predict(ctx context.Context, batch [][]int32) ([][]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.loaded {
		return nil, ErrNotLoaded
	}

	width := len(b.bias)
	out := make([][]float64, len(batch))
	for i, seq := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logits := make([]float64, width)
		tokens := 0
		for _, id := range seq {
			if id == 0 {
				continue
			}
			tokens++
			if w, ok := b.weights[id]; ok {
				for k := range logits {
					logits[k] += w[k]
				}
			}
		}
		if b.pooling == poolingMean && tokens > 0 {
			for k := range logits {
				logits[k] /= float64(tokens)
			}
		}
		for k := range logits {
			logits[k] = sigmoid(logits[k] + b.bias[k])
		}
		out[i] = logits
	}
	return out, nil
}

func floats(v *fastjson.Value) ([]float64, error) {
	if v == nil {
		return nil, fmt.Errorf("missing")
	}
	arr, err := v.Array()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(arr))
	for i, x := range arr {
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
