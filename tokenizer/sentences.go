package tokenizer

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// SplitSentences
// Segments a line of text into sentences. Translation models are trained
// on single sentences, so long inputs translate better one sentence at a
// time.
func SplitSentences(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	doc, err := prose.NewDocument(
		text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false),
	)
	if err != nil {
		return nil, err
	}
	sentences := make([]string, 0)
	for _, sentence := range doc.Sentences() {
		if trimmed := strings.TrimSpace(sentence.Text); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	if len(sentences) == 0 {
		sentences = append(sentences, text)
	}
	return sentences, nil
}
