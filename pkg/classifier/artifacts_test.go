package classifier

import (
	"context"
	"testing"

	"github.com/NeuralTrust/ToxGuard/pkg/config"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/model"
	"github.com/NeuralTrust/ToxGuard/pkg/infra/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_DemoArtifacts(t *testing.T) {
	c := New(Settings{
		Categories:        append([]string(nil), config.DefaultCategories...),
		MaxSequenceLength: 100,
		MaxCommentLength:  500,
		Padding:           tokenizer.Post,
		Truncating:        tokenizer.Pre,
		TokenizerPath:     "../../models/tokenizer.json",
	}, model.NewLocalBackend("../../models/tox_model.json"), FileTokenizerLoader, quietLogger())
	require.NoError(t, c.Load(context.Background()))

	results, err := c.Predict(context.Background(), []string{
		"You are lovely, thanks!",
		"you stupid idiot",
		"damn crap, stupid moron",
	}, 0.5)
	require.NoError(t, err)

	assert.Equal(t, SeveritySafe, results[0].Severity)
	assert.Equal(t, SeverityMedium, results[1].Severity)
	assert.Equal(t, 2, results[1].FlaggedCategories)
	assert.Equal(t, SeverityToxic, results[2].Severity)
}
