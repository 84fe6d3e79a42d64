package nmt_runner

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// COMPARISON_HEADER names the columns of a comparison report.
var COMPARISON_HEADER = []string{
	"Source (FR)",
	"Target (EN)",
	"Translation (EN)",
}

// ExportComparison
// Writes a comparison report of the source, reference, and hypothesis
// files to outPath. It returns the number of data rows written. When
// detokenize is not nil it is applied to each hypothesis line.
func ExportComparison(sourcePath, referencePath, hypothesisPath,
	outPath string, detokenize func(string) string) (int, error) {
	inputs := make([]io.Reader, 0, 3)
	for _, path := range []string{sourcePath, referencePath,
		hypothesisPath} {
		file, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer file.Close()
		inputs = append(inputs, file)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	rows, writeErr := WriteComparison(out, inputs[0], inputs[1], inputs[2],
		detokenize)
	if closeErr := out.Close(); writeErr == nil && closeErr != nil {
		return rows, closeErr
	}
	return rows, writeErr
}

// WriteComparison
// Zips three line-aligned inputs into CSV rows under COMPARISON_HEADER.
// Each field is the whitespace-stripped line. Output stops at the end of
// the shortest input; differing line counts are not an error.
func WriteComparison(w io.Writer, source, reference, hypothesis io.Reader,
	detokenize func(string) string) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(COMPARISON_HEADER); err != nil {
		return 0, err
	}

	scanners := []*bufio.Scanner{
		newLineScanner(source),
		newLineScanner(reference),
		newLineScanner(hypothesis),
	}
	rows := 0
	for {
		record := make([]string, len(scanners))
		complete := true
		for idx, scanner := range scanners {
			if !scanner.Scan() {
				complete = false
				break
			}
			record[idx] = strings.TrimSpace(scanner.Text())
		}
		if !complete {
			break
		}
		if detokenize != nil {
			record[2] = detokenize(record[2])
		}
		if err := writer.Write(record); err != nil {
			return rows, err
		}
		rows++
	}
	// Rows already counted are flushed even when an input fails.
	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, err
	}
	for idx, scanner := range scanners {
		if err := scanner.Err(); err != nil {
			return rows, errors.Wrapf(err, "reading %s",
				COMPARISON_HEADER[idx])
		}
	}
	return rows, nil
}
