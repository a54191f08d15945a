package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Keras writes word_index as a JSON string nested inside the config.
const kerasDoc = `{
  "class_name": "Tokenizer",
  "config": {
    "num_words": 6,
    "filters": "!\"#$%&()*+,-./:;<=>?@[\\]^_` + "`" + `{|}~\t\n",
    "lower": true,
    "split": " ",
    "char_level": false,
    "oov_token": null,
    "document_count": 3,
    "word_index": "{\"you\": 1, \"are\": 2, \"great\": 3, \"an\": 4, \"idiot\": 5, \"rare\": 6}"
  }
}`

func TestParse_KerasDocument(t *testing.T) {
	tok, err := Parse([]byte(kerasDoc))
	require.NoError(t, err)

	assert.Equal(t, []int32{1, 2, 3}, tok.TextToSequence("You are GREAT!"))
	assert.Equal(t, []int32{1, 2, 4, 5}, tok.TextToSequence("you are, an... idiot"))
	// "rare" has index 6 which is outside num_words; unknown words vanish without an OOV token
	assert.Equal(t, []int32{1}, tok.TextToSequence("rare unknown you"))
	assert.Empty(t, tok.TextToSequence("!!! ???"))
}

func TestParse_BareConfigWithObjectIndexAndOOV(t *testing.T) {
	doc := `{"lower": false, "split": " ", "oov_token": "<OOV>", "word_index": {"<OOV>": 1, "Hi": 2, "there": 3}}`
	tok, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []int32{2, 3}, tok.TextToSequence("Hi there"))
	assert.Equal(t, []int32{1, 3}, tok.TextToSequence("hi there"), "case preserved when lower is false")
}

func TestParse_CharLevel(t *testing.T) {
	tok, err := Parse([]byte(`{"char_level": true, "word_index": {"a": 1, "b": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 1}, tok.TextToSequence("AbXa"))
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":         `{`,
		"missing index":    `{"config": {"lower": true}}`,
		"empty index":      `{"word_index": {}}`,
		"bad index value":  `{"word_index": {"a": "x"}}`,
		"zero index":       `{"word_index": {"a": 0}}`,
		"oov not indexed":  `{"oov_token": "<OOV>", "word_index": {"a": 1}}`,
		"config not obj":   `{"config": 3}`,
		"empty split char": `{"split": "", "word_index": {"a": 1}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(kerasDoc), 0o600))

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, tok.TextsToSequences([]string{"a", "you"}), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPadSequences(t *testing.T) {
	seqs := [][]int32{{1, 2, 3, 4, 5}, {7}, {}}

	post := PadSequences(seqs, 3, Post, Pre)
	assert.Equal(t, [][]int32{{3, 4, 5}, {7, 0, 0}, {0, 0, 0}}, post)

	pre := PadSequences(seqs, 3, Pre, Post)
	assert.Equal(t, [][]int32{{1, 2, 3}, {0, 0, 7}, {0, 0, 0}}, pre)

	exact := PadSequences([][]int32{{1, 2, 3}}, 3, Post, Pre)
	assert.Equal(t, [][]int32{{1, 2, 3}}, exact)
	assert.Empty(t, PadSequences(nil, 3, Post, Pre))
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("pre")
	require.NoError(t, err)
	assert.Equal(t, Pre, s)

	_, err = ParseSide("left")
	assert.Error(t, err)
}
