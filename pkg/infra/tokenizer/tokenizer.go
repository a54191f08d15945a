package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fastjson"
)

// DefaultFilters mirrors the Keras Tokenizer default.
const DefaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

var ErrInvalidArtifact = errors.New("invalid tokenizer artifact")

// Tokenizer maps text to word index sequences the same way the training pipeline did.
// It is read-only after Parse and safe for concurrent use.
type Tokenizer struct {
	wordIndex map[string]int32
	numWords  int
	oovIndex  int32
	filters   map[rune]struct{}
	lower     bool
	split     string
	charLevel bool
}

// Load reads a Tokenizer.to_json() document from disk.
func Load(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer %s: %w", path, err)
	}
	return Parse(data)
}

// Parse accepts either the full {"class_name","config"} document or the bare config
// object. word_index may be an embedded JSON string (as Keras writes it) or an object.
func Parse(data []byte) (*Tokenizer, error) {
	var p fastjson.Parser
	root, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	cfg := root
	if root.Exists("config") {
		cfg = root.Get("config")
	}
	if cfg.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: config is not an object", ErrInvalidArtifact)
	}

	t := &Tokenizer{
		lower: true,
		split: " ",
	}

	filters := DefaultFilters
	if v := cfg.Get("filters"); v != nil && v.Type() == fastjson.TypeString {
		filters = string(v.GetStringBytes())
	}
	t.filters = make(map[rune]struct{}, len(filters))
	for _, r := range filters {
		t.filters[r] = struct{}{}
	}

	if v := cfg.Get("lower"); v != nil && v.Type() != fastjson.TypeNull {
		b, err := v.Bool()
		if err != nil {
			return nil, fmt.Errorf("%w: lower: %v", ErrInvalidArtifact, err)
		}
		t.lower = b
	}
	if v := cfg.Get("split"); v != nil && v.Type() == fastjson.TypeString {
		t.split = string(v.GetStringBytes())
	}
	if t.split == "" {
		return nil, fmt.Errorf("%w: empty split separator", ErrInvalidArtifact)
	}
	if v := cfg.Get("char_level"); v != nil && v.Type() != fastjson.TypeNull {
		t.charLevel = v.GetBool()
	}
	if v := cfg.Get("num_words"); v != nil && v.Type() == fastjson.TypeNumber {
		t.numWords = v.GetInt()
	}

	wordIndex, err := parseIndex(cfg.Get("word_index"))
	if err != nil {
		return nil, err
	}
	if len(wordIndex) == 0 {
		return nil, fmt.Errorf("%w: empty word_index", ErrInvalidArtifact)
	}
	t.wordIndex = wordIndex

	if v := cfg.Get("oov_token"); v != nil && v.Type() == fastjson.TypeString {
		oov := string(v.GetStringBytes())
		idx, ok := wordIndex[oov]
		if !ok {
			return nil, fmt.Errorf("%w: oov_token %q missing from word_index", ErrInvalidArtifact, oov)
		}
		t.oovIndex = idx
	}

	return t, nil
}

func parseIndex(v *fastjson.Value) (map[string]int32, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: word_index missing", ErrInvalidArtifact)
	}
	if v.Type() == fastjson.TypeString {
		var p fastjson.Parser
		inner, err := p.ParseBytes(v.GetStringBytes())
		if err != nil {
			return nil, fmt.Errorf("%w: word_index: %v", ErrInvalidArtifact, err)
		}
		return parseIndex(inner)
	}

	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("%w: word_index: %v", ErrInvalidArtifact, err)
	}
	out := make(map[string]int32, obj.Len())
	var visitErr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		if visitErr != nil {
			return
		}
		idx, err := val.Int()
		if err != nil || idx <= 0 {
			visitErr = fmt.Errorf("%w: bad index for %q", ErrInvalidArtifact, key)
			return
		}
		out[string(key)] = int32(idx)
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return out, nil
}

func (t *Tokenizer) TextsToSequences(texts []string) [][]int32 {
	out := make([][]int32, len(texts))
	for i, text := range texts {
		out[i] = t.TextToSequence(text)
	}
	return out
}

// TextToSequence drops unknown words unless an OOV token is configured, and words
// ranked at or beyond num_words.
func (t *Tokenizer) TextToSequence(text string) []int32 {
	words := t.words(text)
	seq := make([]int32, 0, len(words))
	for _, w := range words {
		idx, ok := t.wordIndex[w]
		switch {
		case ok && (t.numWords == 0 || int(idx) < t.numWords):
			seq = append(seq, idx)
		case t.oovIndex > 0:
			seq = append(seq, t.oovIndex)
		}
	}
	return seq
}

func (t *Tokenizer) words(text string) []string {
	if t.lower {
		text = strings.ToLower(text)
	}
	if t.charLevel {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if _, drop := t.filters[r]; drop {
			b.WriteString(t.split)
			continue
		}
		b.WriteRune(r)
	}

	parts := strings.Split(b.String(), t.split)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
