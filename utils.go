package nmt_runner

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// MAX_LINE_SZ bounds the length of a single corpus line.
const MAX_LINE_SZ = 1024 * 1024

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE_SZ)
	return scanner
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// sanitizeLine keeps one sentence on one line.
func sanitizeLine(s string) string {
	return lineBreaks.Replace(s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
