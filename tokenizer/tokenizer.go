// Package tokenizer turns raw utterances into the token sequences an
// exported translation model expects, and back.
package tokenizer

import (
	"log"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

const (
	TYPE_SPACE         = "space"
	TYPE_SENTENCEPIECE = "sentencepiece"
)

// SP_SPACE is the meta symbol SentencePiece uses to mark word boundaries.
const SP_SPACE = "▁"

type Tokenizer interface {
	// Tokenize splits a line of text into tokens.
	Tokenize(text string) ([]string, error)
	// Detokenize reverses Tokenize as closely as the tokenizer allows.
	Detokenize(tokens []string) string
}

// Config selects and parameterizes a tokenizer. It must match the
// tokenization the model was trained with.
type Config struct {
	Type      string `yaml:"type" env:"NMT_TOKENIZER"`
	Model     string `yaml:"model" env:"NMT_TOKENIZER_MODEL"`
	Lowercase bool   `yaml:"lowercase" env:"NMT_TOKENIZER_LOWERCASE"`
}

// IsZero reports whether nothing was configured.
func (c Config) IsZero() bool {
	return c.Type == "" && c.Model == "" && !c.Lowercase
}

// Validate
// Checks that the type is known and that a SentencePiece tokenizer has a
// model to load.
func (c Config) Validate() error {
	switch c.Type {
	case "", TYPE_SPACE:
		return nil
	case TYPE_SENTENCEPIECE:
		if c.Model == "" {
			return errors.New("sentencepiece tokenizer requires a model path")
		}
		return nil
	default:
		return errors.Errorf("unknown tokenizer type: %q", c.Type)
	}
}

// New
// Returns the tokenizer described by cfg. An empty configuration is
// almost certainly a mismatch with the training-time tokenization, so it
// is reported before falling back to whitespace splitting.
func New(cfg Config) (Tokenizer, error) {
	if cfg.IsZero() {
		log.Printf("WARNING: no tokenization configured, falling back to " +
			"whitespace tokenization; this must match the tokenization " +
			"used at training time")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case TYPE_SENTENCEPIECE:
		return NewSentencePiece(cfg.Model, cfg.Lowercase)
	default:
		return &Space{Lowercase: cfg.Lowercase}, nil
	}
}

// Normalize applies NFC normalization and trims surrounding whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// Space splits on Unicode whitespace. It is the framework's default
// tokenization when no tokenizer is declared.
type Space struct {
	Lowercase bool
}

func (s *Space) Tokenize(text string) ([]string, error) {
	text = Normalize(text)
	if s.Lowercase {
		text = strings.ToLower(text)
	}
	return strings.FieldsFunc(text, unicode.IsSpace), nil
}

func (s *Space) Detokenize(tokens []string) string {
	return strings.Join(tokens, " ")
}
