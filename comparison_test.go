package nmt_runner

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteComparison_ZipsShortest(t *testing.T) {
	source := "le chat\n  la maison  \nun chien\n"
	reference := "the cat\nthe house\na dog\nextra\n"
	hypothesis := "the cat\nthe home\n"

	var out bytes.Buffer
	rows, err := WriteComparison(&out, strings.NewReader(source),
		strings.NewReader(reference), strings.NewReader(hypothesis), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		COMPARISON_HEADER,
		{"le chat", "the cat", "the cat"},
		{"la maison", "the house", "the home"},
	}, records)
}

func TestWriteComparison_Header(t *testing.T) {
	var out bytes.Buffer
	rows, err := WriteComparison(&out, strings.NewReader(""),
		strings.NewReader(""), strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Equal(t, "Source (FR),Target (EN),Translation (EN)\n",
		out.String())
}

func TestWriteComparison_Quoting(t *testing.T) {
	var out bytes.Buffer
	_, err := WriteComparison(&out,
		strings.NewReader("oui, bien sûr\n"),
		strings.NewReader("yes, \"of course\"\n"),
		strings.NewReader("yes of course\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Source (FR),Target (EN),Translation (EN)\n"+
		"\"oui, bien sûr\",\"yes, \"\"of course\"\"\",yes of course\n",
		out.String())
}

func TestWriteComparison_Detokenize(t *testing.T) {
	var out bytes.Buffer
	_, err := WriteComparison(&out, strings.NewReader("bonjour\n"),
		strings.NewReader("hello world\n"),
		strings.NewReader("▁hello ▁wor ld\n"),
		func(line string) string {
			return strings.TrimSpace(strings.ReplaceAll(
				strings.ReplaceAll(line, " ", ""), "▁", " "))
		})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "bonjour,hello world,hello world\n")
}

func TestExportComparison(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "test.fr"), "a\nb\nc\n")
	ref := writeFile(t, filepath.Join(dir, "test.en"), "A\nB\nC\nD\n")
	hyp := writeFile(t, filepath.Join(dir, "predictions.en"), "x\ny\nz\n")
	out := filepath.Join(dir, "comparison.csv")

	rows, err := ExportComparison(src, ref, hyp, out, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	report, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(report), "\n"))
}

func TestExportComparison_MissingInput(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "test.fr"), "a\n")
	_, err := ExportComparison(src, filepath.Join(dir, "missing.en"),
		src, filepath.Join(dir, "comparison.csv"), nil)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "comparison.csv"))
}

func TestWriteComparison_ReadErrorFlushesRows(t *testing.T) {
	long := strings.Repeat("x", MAX_LINE_SZ+1)
	var out bytes.Buffer
	rows, err := WriteComparison(&out,
		strings.NewReader("un\ndeux\n"),
		strings.NewReader("one\ntwo\n"),
		strings.NewReader("one\n"+long+"\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading Translation (EN)")
	assert.Equal(t, 1, rows)

	records, readErr := csv.NewReader(&out).ReadAll()
	require.NoError(t, readErr)
	assert.Equal(t, [][]string{
		COMPARISON_HEADER,
		{"un", "one", "one"},
	}, records)
}
