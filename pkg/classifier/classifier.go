package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NeuralTrust/ToxGuard/pkg/infra/model"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/tokenizer"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const echoLength = 200

var ErrNotLoaded = errors.New("model not loaded")

// Tokenizer is the part of tokenizer.Tokenizer the classifier needs.
type Tokenizer interface {
	TextsToSequences(texts []string) [][]int32
}

type TokenizerLoader func(path string) (Tokenizer, error)

func FileTokenizerLoader(path string) (Tokenizer, error) {
	tok, err := tokenizer.Load(path)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

type Settings struct {
	Categories        []string
	MaxSequenceLength int
	MaxCommentLength  int
	Padding           tokenizer.Side
	Truncating        tokenizer.Side
	TokenizerPath     string
}

type state struct {
	tokenizer Tokenizer
}

// Classifier owns the loaded tokenizer and model backend. It is safe for concurrent
// Predict calls once Load has returned.
type Classifier struct {
	settings      Settings
	backend       model.Backend
	loadTokenizer TokenizerLoader
	logger        *logrus.Logger
	loadMu        sync.Mutex
	state         atomic.Pointer[state]
}

func New(settings Settings, backend model.Backend, loadTokenizer TokenizerLoader, logger *logrus.Logger) *Classifier {
	if loadTokenizer == nil {
		loadTokenizer = FileTokenizerLoader
	}
	return &Classifier{
		settings:      settings,
		backend:       backend,
		loadTokenizer: loadTokenizer,
		logger:        logger,
	}
}

// Load reads the tokenizer, loads the backend and checks that the model emits one
// score per configured category. Calls after a successful Load do nothing.
func (c *Classifier) Load(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if c.state.Load() != nil {
		return nil
	}

	start := time.Now()
	c.logger.WithFields(logrus.Fields{
		"backend":   c.backend.Name(),
		"tokenizer": c.settings.TokenizerPath,
	}).Info("loading model and tokenizer")

	tok, err := c.loadTokenizer(c.settings.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	if err := c.backend.Load(ctx); err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	if width := c.backend.OutputWidth(); width != len(c.settings.Categories) {
		return fmt.Errorf("%w: model emits %d scores, %d categories configured",
			model.ErrOutputMismatch, width, len(c.settings.Categories))
	}
	if labels := c.backend.Labels(); labels != nil && !slices.Equal(labels, c.settings.Categories) {
		return fmt.Errorf("%w: model labels %v do not match categories %v",
			model.ErrOutputMismatch, labels, c.settings.Categories)
	}

	c.state.Store(&state{tokenizer: tok})
	c.logger.WithFields(logrus.Fields{
		"backend":  c.backend.Name(),
		"duration": time.Since(start).String(),
	}).Info("model and tokenizer loaded")
	return nil
}

func (c *Classifier) IsLoaded() bool {
	return c.state.Load() != nil
}

// Predict scores texts in one backend call. Results keep input order.
func (c *Classifier) Predict(ctx context.Context, texts []string, threshold float64) ([]ClassificationResult, error) {
	st := c.state.Load()
	if st == nil {
		return nil, ErrNotLoaded
	}
	if len(texts) == 0 {
		return []ClassificationResult{}, nil
	}

	truncated := lo.Map(texts, func(t string, _ int) string {
		return truncateRunes(t, c.settings.MaxCommentLength)
	})
	sequences := tokenizer.PadSequences(
		st.tokenizer.TextsToSequences(truncated),
		c.settings.MaxSequenceLength,
		c.settings.Padding,
		c.settings.Truncating,
	)

	rows, err := c.backend.Predict(ctx, sequences)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(rows) != len(texts) {
		return nil, fmt.Errorf("%w: %d rows for %d texts", model.ErrOutputMismatch, len(rows), len(texts))
	}

	results := make([]ClassificationResult, len(texts))
	for i, row := range rows {
		scores, err := c.scores(row)
		if err != nil {
			return nil, err
		}
		flagged := scores.CountAtLeast(threshold)
		severity, toxic := SeverityFor(flagged)
		results[i] = ClassificationResult{
			Text:              truncateRunes(texts[i], echoLength),
			Scores:            scores,
			IsToxic:           toxic,
			Severity:          severity,
			FlaggedCategories: flagged,
		}
	}
	return results, nil
}

func (c *Classifier) scores(row []float64) (Scores, error) {
	if len(row) != len(c.settings.Categories) {
		return nil, fmt.Errorf("%w: row has %d scores, want %d",
			model.ErrOutputMismatch, len(row), len(c.settings.Categories))
	}
	out := make(Scores, len(row))
	for k, v := range row {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: NaN score for %s", model.ErrOutputMismatch, c.settings.Categories[k])
		}
		out[k] = CategoryScore{
			Category: c.settings.Categories[k],
			Score:    round4(clamp01(v)),
		}
	}
	return out, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

//go:generate mockery --name=Service --dir=. --output=./mocks --filename=service_mock.go --case=underscore
type Service interface {
	Predict(ctx context.Context, texts []string, threshold float64) ([]ClassificationResult, error)
	IsLoaded() bool
	BackendName() string
}

var _ Service = (*Classifier)(nil)

func (c *Classifier) BackendName() string {
	return c.backend.Name()
}
