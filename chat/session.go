// Package chat runs a line-oriented translation session against an
// exported model's serving signature.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/wbrown/nmt_runner/serving"
	"github.com/wbrown/nmt_runner/tokenizer"
)

const (
	EXIT_SENTINEL = "exit"

	DEFAULT_PROMPT   = "Vous: "
	DEFAULT_LABEL    = "Modèle: "
	DEFAULT_BANNER   = "Mini-chat de traduction (entrez 'exit' pour quitter)"
	DEFAULT_FAREWELL = "Fin du chat."
)

// Session reads utterances from In and writes translations to Out until
// the exit sentinel is entered or the input ends.
type Session struct {
	Tokenizer tokenizer.Tokenizer
	Signature serving.Signature
	In        io.Reader
	Out       io.Writer

	Prompt   string
	Label    string
	Banner   string
	Farewell string

	// SplitSentences translates each sentence of a line separately.
	SplitSentences bool
	// Detokenize applies the tokenizer's detokenization to the
	// space-joined output tokens.
	Detokenize bool

	// Turns counts the utterances that were translated.
	Turns int
}

func NewSession(tok tokenizer.Tokenizer, sig serving.Signature,
	in io.Reader, out io.Writer) *Session {
	return &Session{
		Tokenizer: tok,
		Signature: sig,
		In:        in,
		Out:       out,
		Prompt:    DEFAULT_PROMPT,
		Label:     DEFAULT_LABEL,
		Banner:    DEFAULT_BANNER,
		Farewell:  DEFAULT_FAREWELL,
	}
}

// IsExit reports whether a line is the session's exit sentinel.
func IsExit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), EXIT_SENTINEL)
}

// Run
// Drives the session. Tokenization, inference, and decoding errors are
// returned as-is and end the session.
func (s *Session) Run(ctx context.Context) error {
	if s.Banner != "" {
		fmt.Fprintln(s.Out, s.Banner)
	}
	reader := bufio.NewReader(s.In)
	for {
		fmt.Fprint(s.Out, s.Prompt)
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		if readErr == io.EOF && line == "" {
			fmt.Fprintln(s.Out)
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		if IsExit(line) {
			if s.Farewell != "" {
				fmt.Fprintln(s.Out, s.Farewell)
			}
			return nil
		}

		translation, err := s.TranslateLine(ctx, line)
		if err != nil {
			return err
		}
		s.Turns++
		fmt.Fprintf(s.Out, "%s%s\n", s.Label, translation)

		if readErr == io.EOF {
			return nil
		}
	}
}

// TranslateLine
// Translates one utterance, sentence by sentence when SplitSentences is
// set.
func (s *Session) TranslateLine(ctx context.Context, line string) (string,
	error) {
	if !s.SplitSentences {
		return s.Translate(ctx, line)
	}
	sentences, err := tokenizer.SplitSentences(line)
	if err != nil {
		return "", err
	}
	if len(sentences) == 0 {
		return s.Translate(ctx, line)
	}
	translations := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		translation, err := s.Translate(ctx, sentence)
		if err != nil {
			return "", err
		}
		translations = append(translations, translation)
	}
	return strings.Join(translations, " "), nil
}

// Translate
// Tokenizes text, calls the signature with a (1, L) token tensor and its
// length, and decodes the rank 0 candidate of the first batch element.
func (s *Session) Translate(ctx context.Context, text string) (string,
	error) {
	tokens, err := s.Tokenizer.Tokenize(text)
	if err != nil {
		return "", err
	}
	output, err := s.Signature.Predict(ctx, serving.NewInput(tokens))
	if err != nil {
		return "", err
	}
	best, err := output.Best()
	if err != nil {
		return "", err
	}
	return s.decode(best)
}

func (s *Session) decode(tokens []string) (string, error) {
	joined := strings.Join(tokens, " ")
	if !utf8.ValidString(joined) {
		return "", fmt.Errorf("translation is not valid UTF-8: %q", joined)
	}
	if s.Detokenize {
		return s.Tokenizer.Detokenize(tokens), nil
	}
	return joined, nil
}
