package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearArtifact = `{
  "labels": ["toxic", "severe_toxic", "obscene", "threat", "insult", "identity_hate"],
  "pooling": "sum",
  "bias": [-4, -4, -4, -4, -4, -4],
  "weights": {
    "5": [6, 0, 0, 0, 6, 0],
    "9": [6, 6, 6, 6, 6, 6]
  }
}`

func writeArtifact(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLocalBackend_LoadAndPredict(t *testing.T) {
	b := NewLocalBackend(writeArtifact(t, linearArtifact))
	require.NoError(t, b.Load(context.Background()))

	assert.Equal(t, 6, b.OutputWidth())
	assert.Equal(t, "toxic", b.Labels()[0])

	rows, err := b.Predict(context.Background(), [][]int32{
		{0, 0, 0},
		{5, 0, 0},
		{9, 5, 0},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, v := range rows[0] {
		assert.InDelta(t, sigmoid(-4), v, 1e-9, "padding only yields the bias")
	}
	assert.InDelta(t, sigmoid(2), rows[1][0], 1e-9)
	assert.InDelta(t, sigmoid(-4), rows[1][1], 1e-9)
	assert.InDelta(t, sigmoid(8), rows[2][0], 1e-9)
	assert.InDelta(t, sigmoid(2), rows[2][3], 1e-9)
	for _, row := range rows {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestLocalBackend_MeanPooling(t *testing.T) {
	b := NewLocalBackend("")
	require.NoError(t, b.parse([]byte(`{"pooling":"mean","bias":[0],"weights":{"1":[4],"2":[0]}}`)))

	rows, err := b.Predict(context.Background(), [][]int32{{1, 2, 0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(2), rows[0][0], 1e-9)
	assert.Nil(t, b.Labels())
}

func TestLocalBackend_NotLoaded(t *testing.T) {
	_, err := NewLocalBackend("x").Predict(context.Background(), [][]int32{{1}})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLocalBackend_InvalidArtifacts(t *testing.T) {
	tests := map[string]string{
		"not json":        `nope`,
		"no bias":         `{"weights":{}}`,
		"empty bias":      `{"bias":[],"weights":{}}`,
		"no weights":      `{"bias":[0]}`,
		"bad token id":    `{"bias":[0],"weights":{"abc":[1]}}`,
		"zero token id":   `{"bias":[0],"weights":{"0":[1]}}`,
		"row width":       `{"bias":[0,0],"weights":{"1":[1]}}`,
		"labels width":    `{"labels":["a"],"bias":[0,0],"weights":{}}`,
		"unknown pooling": `{"pooling":"max","bias":[0],"weights":{}}`,
		"non numeric":     `{"bias":["x"],"weights":{}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			err := NewLocalBackend("").parse([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}
}

func TestLocalBackend_MissingFile(t *testing.T) {
	err := NewLocalBackend(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())
	assert.Error(t, err)
}

func TestLocalBackend_CancelledContext(t *testing.T) {
	b := NewLocalBackend(writeArtifact(t, linearArtifact))
	require.NoError(t, b.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Predict(ctx, [][]int32{{1}})
	assert.ErrorIs(t, err, context.Canceled)
}
