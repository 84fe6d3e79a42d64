package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"
	"github.com/wbrown/nmt_runner"
)

// Splits an English/French CSV corpus into train and test files and builds
// a vocabulary for each language.

type args struct {
	Input      string  `arg:"--input,required" help:"CSV corpus with en and fr columns, local path or s3://bucket/key"`
	OutputDir  string  `arg:"--output-dir,required" help:"directory for the split and vocabulary files"`
	TestSize   float64 `arg:"--test-size" default:"0.2" help:"fraction of rows held out for testing"`
	RandomSeed int64   `arg:"--random-seed" default:"42" help:"seed for the shuffle"`
	VocabSize  int     `arg:"--vocab-size" default:"5000" help:"maximum vocabulary size per language"`
	SkipVocab  bool    `arg:"--skip-vocab" help:"only write the split files"`
	BuildVocab string  `arg:"--build-vocab" default:"onmt-build-vocab" help:"vocabulary builder executable"`
}

func (args) Description() string {
	return "Splits a parallel corpus and builds per-language vocabularies."
}

func main() {
	var a args
	arg.MustParse(&a)

	opts := nmt_runner.DefaultPrepareOptions()
	opts.Input = a.Input
	opts.OutputDir = a.OutputDir
	opts.TestSize = a.TestSize
	opts.Seed = a.RandomSeed
	opts.VocabSize = a.VocabSize
	opts.SkipVocab = a.SkipVocab
	opts.BuildVocab = a.BuildVocab

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if _, err := nmt_runner.PrepareData(ctx, opts); err != nil {
		log.Fatal(err)
	}
}
