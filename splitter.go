package nmt_runner

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

const (
	DEFAULT_TEST_SIZE   = 0.2
	DEFAULT_RANDOM_SEED = 42
	DEFAULT_VOCAB_SIZE  = 5000
)

// Pair is one row of a parallel corpus.
type Pair struct {
	EN string
	FR string
}

// ReadParallelCSV
// Reads a CSV whose header names an `en` and an `fr` column. Other columns
// are ignored. Line breaks inside quoted fields are flattened to spaces.
func ReadParallelCSV(r io.Reader) ([]Pair, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("corpus is empty")
	} else if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	enIdx, frIdx := -1, -1
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case "en":
			enIdx = idx
		case "fr":
			frIdx = idx
		}
	}
	if enIdx < 0 || frIdx < 0 {
		return nil, errors.Errorf("corpus header %v must contain `en` and "+
			"`fr` columns", header)
	}

	pairs := make([]Pair, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{
			EN: sanitizeLine(record[enIdx]),
			FR: sanitizeLine(record[frIdx]),
		})
	}
	return pairs, nil
}

// SplitSizes
// Returns the number of test and train rows for n rows. The test share is
// rounded up, and both partitions must be non-empty.
func SplitSizes(n int, testSize float64) (nTest, nTrain int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return 0, 0, errors.Errorf("test size must be in (0, 1), got %v",
			testSize)
	}
	nTest = int(math.Ceil(testSize * float64(n)))
	nTrain = n - nTest
	if nTest < 1 || nTrain < 1 {
		return 0, 0, errors.Errorf("cannot split %d rows with test size "+
			"%v into non-empty partitions", n, testSize)
	}
	return nTest, nTrain, nil
}

// SplitCorpus
// Shuffles pairs with a generator seeded by seed and partitions them. The
// same pairs, test size, and seed always produce the same partitions.
func SplitCorpus(pairs []Pair, testSize float64, seed int64) (train,
	test []Pair, err error) {
	nTest, nTrain, err := SplitSizes(len(pairs), testSize)
	if err != nil {
		return nil, nil, err
	}
	rng := rand.New(rand.NewSource(uint64(seed)))
	perm := rng.Perm(len(pairs))
	test = make([]Pair, 0, nTest)
	for _, idx := range perm[:nTest] {
		test = append(test, pairs[idx])
	}
	train = make([]Pair, 0, nTrain)
	for _, idx := range perm[nTest:] {
		train = append(train, pairs[idx])
	}
	return train, test, nil
}

// SplitFiles names the files written for a split.
type SplitFiles struct {
	TrainEN, TrainFR string
	TestEN, TestFR   string
	VocabEN, VocabFR string
}

func NewSplitFiles(dir string) SplitFiles {
	return SplitFiles{
		TrainEN: filepath.Join(dir, "train.en"),
		TrainFR: filepath.Join(dir, "train.fr"),
		TestEN:  filepath.Join(dir, "test.en"),
		TestFR:  filepath.Join(dir, "test.fr"),
		VocabEN: filepath.Join(dir, "vocab.en"),
		VocabFR: filepath.Join(dir, "vocab.fr"),
	}
}

func writeLines(path string, pairs []Pair, pick func(Pair) string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(file)
	for _, pair := range pairs {
		if _, err := writer.WriteString(pick(pair) + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteSplit
// Writes the line-correlated train and test files for both languages.
func WriteSplit(files SplitFiles, train, test []Pair) error {
	en := func(p Pair) string { return p.EN }
	fr := func(p Pair) string { return p.FR }
	for _, out := range []struct {
		path  string
		pairs []Pair
		pick  func(Pair) string
	}{
		{files.TrainEN, train, en},
		{files.TrainFR, train, fr},
		{files.TestEN, test, en},
		{files.TestFR, test, fr},
	} {
		if err := writeLines(out.path, out.pairs, out.pick); err != nil {
			return errors.Wrapf(err, "writing %s", out.path)
		}
	}
	return nil
}

// BuildVocabulary
// Runs the framework's vocabulary builder over trainFile, keeping at most
// size entries.
func BuildVocabulary(ctx context.Context, exec Executor, binary, trainFile,
	vocabFile string, size int) error {
	if binary == "" {
		binary = DEFAULT_BUILD_VOCAB_BINARY
	}
	return exec.Run(ctx, Command{
		Name: binary,
		Args: []string{
			"--size", strconv.Itoa(size),
			"--save_vocab", vocabFile,
			trainFile,
		},
	})
}

// SplitStats summarizes a prepared split.
type SplitStats struct {
	Train       int
	Test        int
	MeanWordsEN float64
	StdWordsEN  float64
	MeanWordsFR float64
	StdWordsFR  float64
}

func computeStats(train, test []Pair) SplitStats {
	lengthsEN := make([]float64, 0, len(train))
	lengthsFR := make([]float64, 0, len(train))
	for _, pair := range train {
		lengthsEN = append(lengthsEN, float64(len(strings.Fields(pair.EN))))
		lengthsFR = append(lengthsFR, float64(len(strings.Fields(pair.FR))))
	}
	stats := SplitStats{Train: len(train), Test: len(test)}
	if len(train) > 1 {
		stats.MeanWordsEN, stats.StdWordsEN = stat.MeanStdDev(lengthsEN, nil)
		stats.MeanWordsFR, stats.StdWordsFR = stat.MeanStdDev(lengthsFR, nil)
	} else if len(train) == 1 {
		stats.MeanWordsEN, stats.MeanWordsFR = lengthsEN[0], lengthsFR[0]
	}
	return stats
}

// PrepareOptions configures PrepareData.
type PrepareOptions struct {
	Input      string
	OutputDir  string
	TestSize   float64
	Seed       int64
	VocabSize  int
	SkipVocab  bool
	Exec       Executor
	BuildVocab string
	// S3 fetches s3:// inputs; when nil a client is created on demand.
	S3 S3Client
}

func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		TestSize:  DEFAULT_TEST_SIZE,
		Seed:      DEFAULT_RANDOM_SEED,
		VocabSize: DEFAULT_VOCAB_SIZE,
	}
}

func (o *PrepareOptions) openInput() (io.ReadCloser, error) {
	if !IsS3URI(o.Input) {
		return os.Open(o.Input)
	}
	bucket, key, err := ParseS3URI(o.Input)
	if err != nil {
		return nil, err
	}
	if o.S3 == nil {
		if o.S3, err = NewS3Client(); err != nil {
			return nil, err
		}
	}
	return FetchS3Object(o.S3, bucket, key)
}

// PrepareData
// Splits the parallel corpus at opts.Input into train and test files under
// opts.OutputDir and builds a vocabulary for each language from the train
// files.
func PrepareData(ctx context.Context, opts PrepareOptions) (*SplitStats,
	error) {
	if opts.Input == "" || opts.OutputDir == "" {
		return nil, errors.New("input and output directory are required")
	}
	if opts.VocabSize <= 0 {
		return nil, errors.Errorf("vocabulary size must be positive, got %d",
			opts.VocabSize)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}

	input, err := opts.openInput()
	if err != nil {
		return nil, err
	}
	pairs, err := ReadParallelCSV(input)
	input.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", opts.Input)
	}
	log.Printf("Read %s sentence pairs from %s",
		humanize.Comma(int64(len(pairs))), opts.Input)

	train, test, err := SplitCorpus(pairs, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	files := NewSplitFiles(opts.OutputDir)
	if err := WriteSplit(files, train, test); err != nil {
		return nil, err
	}

	if !opts.SkipVocab {
		exec := opts.Exec
		if exec == nil {
			exec = NewExecExecutor()
		}
		log.Printf("Building English vocabulary...")
		if err := BuildVocabulary(ctx, exec, opts.BuildVocab, files.TrainEN,
			files.VocabEN, opts.VocabSize); err != nil {
			return nil, err
		}
		log.Printf("Building French vocabulary...")
		if err := BuildVocabulary(ctx, exec, opts.BuildVocab, files.TrainFR,
			files.VocabFR, opts.VocabSize); err != nil {
			return nil, err
		}
	}

	stats := computeStats(train, test)
	log.Printf("Data split complete:")
	log.Printf("Training samples: %s", humanize.Comma(int64(stats.Train)))
	log.Printf("Test samples: %s", humanize.Comma(int64(stats.Test)))
	log.Printf("Words per sentence: en %.1f ± %.1f, fr %.1f ± %.1f",
		stats.MeanWordsEN, stats.StdWordsEN, stats.MeanWordsFR,
		stats.StdWordsFR)
	return &stats, nil
}
