package tokenizer

import (
	"strings"
	"testing"
	"time"
)

var benchCorpus = strings.Repeat("Le chat noir dort sur le canapé du salon. "+
	"Il fait beau aujourd'hui, n'est-ce pas ?\n", 2000)

func BenchmarkSpace_Tokenize(b *testing.B) {
	b.StopTimer()
	lines := strings.Split(benchCorpus, "\n")
	tok := &Space{Lowercase: true}
	start := time.Now()
	b.StartTimer()
	tokenCount := 0
	for i := 0; i < b.N; i++ {
		for _, line := range lines {
			tokens, _ := tok.Tokenize(line)
			tokenCount += len(tokens)
		}
	}
	b.StopTimer()
	elapsed := time.Since(start)
	b.ReportMetric(float64(tokenCount)/elapsed.Seconds(), "tokens/sec")
}

func BenchmarkDetokenizePieces(b *testing.B) {
	b.StopTimer()
	pieces := strings.Fields(strings.Repeat("▁the ▁bl ack ▁cat ▁sle eps ", 64))
	start := time.Now()
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		DetokenizePieces(pieces)
	}
	b.StopTimer()
	elapsed := time.Since(start)
	b.ReportMetric(float64(b.N*len(pieces))/elapsed.Seconds(), "pieces/sec")
}

func BenchmarkSplitSentences(b *testing.B) {
	b.StopTimer()
	text := strings.ReplaceAll(benchCorpus[:len(benchCorpus)/100], "\n", " ")
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if _, err := SplitSentences(text); err != nil {
			b.Fatal(err)
		}
	}
}
