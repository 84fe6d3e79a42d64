package tokenizer

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

const SP_LRU_SZ = 4096

// SentencePiece tokenizes with a trained SentencePiece model. Tokenized
// lines are memoized, since interactive sessions tend to repeat input.
type SentencePiece struct {
	sp        *sentencepiece.Sentencepiece
	cache     *lru.ARCCache
	lowercase bool
	CacheHits int
}

// NewSentencePiece
// Loads the SentencePiece model at modelPath.
func NewSentencePiece(modelPath string, lowercase bool) (*SentencePiece,
	error) {
	sp, err := sentencepiece.NewSentencepieceFromFile(modelPath, lowercase)
	if err != nil {
		return nil, errors.Wrapf(err, "loading sentencepiece model %s",
			modelPath)
	}
	cache, err := lru.NewARC(SP_LRU_SZ)
	if err != nil {
		return nil, err
	}
	return &SentencePiece{
		sp:        &sp,
		cache:     cache,
		lowercase: lowercase,
	}, nil
}

func (s *SentencePiece) Tokenize(text string) ([]string, error) {
	text = Normalize(text)
	if cached, ok := s.cache.Get(text); ok {
		s.CacheHits++
		return append([]string(nil), cached.([]string)...), nil
	}
	pieces := s.sp.Tokenize(text)
	tokens := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		tokens = append(tokens, piece.Text)
	}
	s.cache.Add(text, tokens)
	return append([]string(nil), tokens...), nil
}

// Detokenize concatenates pieces and turns boundary markers back into
// spaces.
func (s *SentencePiece) Detokenize(tokens []string) string {
	return DetokenizePieces(tokens)
}

// DetokenizePieces
// Reassembles SentencePiece pieces into text. Pieces may arrive either
// separated by spaces or already split into a slice.
func DetokenizePieces(tokens []string) string {
	joined := strings.Join(tokens, "")
	joined = strings.ReplaceAll(joined, " ", "")
	return strings.TrimSpace(strings.ReplaceAll(joined, SP_SPACE, " "))
}

// PieceDetokenizer tokenizes with the wrapped tokenizer but reassembles
// SentencePiece pieces on the way out, for models whose target side is
// SentencePiece-encoded while the source is not.
type PieceDetokenizer struct {
	Tokenizer
}

func NewPieceDetokenizer(tok Tokenizer) *PieceDetokenizer {
	return &PieceDetokenizer{Tokenizer: tok}
}

func (p *PieceDetokenizer) Detokenize(tokens []string) string {
	return DetokenizePieces(tokens)
}
