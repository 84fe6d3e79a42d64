package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/nmt_runner"
	"github.com/wbrown/nmt_runner/tokenizer"
)

// Detokenizes a predictions file, one hypothesis per line.

func main() {
	inputFile := flag.String("input", "",
		"predictions file to detokenize")
	outputFile := flag.String("output", "detokenized.txt",
		"output file to write detokenized predictions")
	configPath := flag.String("config", "",
		"run configuration to take tokenization settings from")
	tokenizerType := flag.String("tokenizer", "",
		"tokenizer type [space, sentencepiece]")
	spModel := flag.String("sp_model", "",
		"SentencePiece model file")
	pieces := flag.Bool("pieces", false,
		"reassemble SentencePiece pieces without loading a model")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -input")
	}
	if *outputFile == "" {
		flag.Usage()
		log.Fatal("Must provide -output")
	}

	// check if input file exists
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist")
	}

	detokenize := tokenizer.DetokenizePieces
	if !*pieces {
		var tokCfg tokenizer.Config
		if *configPath != "" {
			cfg, err := nmt_runner.LoadRunConfig(*configPath)
			if err != nil {
				log.Fatal(err)
			}
			tokCfg = cfg.Tokenization
		}
		if *tokenizerType != "" {
			tokCfg.Type = *tokenizerType
		}
		if *spModel != "" {
			tokCfg.Model = *spModel
			if tokCfg.Type == "" {
				tokCfg.Type = tokenizer.TYPE_SENTENCEPIECE
			}
		}
		tok, err := tokenizer.New(tokCfg)
		if err != nil {
			log.Fatal(err)
		}
		detokenize = tok.Detokenize
	}

	inputFileHandle, err := os.Open(*inputFile)
	if err != nil {
		log.Fatal(err)
	}
	defer inputFileHandle.Close()

	outputFileHandle, err := os.Create(*outputFile)
	if err != nil {
		log.Fatal(err)
	}
	writer := bufio.NewWriter(outputFileHandle)

	scanner := bufio.NewScanner(inputFileHandle)
	scanner.Buffer(make([]byte, 0, 64*1024), nmt_runner.MAX_LINE_SZ)
	lines := 0
	for scanner.Scan() {
		detokenized := detokenize(strings.Fields(scanner.Text()))
		if _, err := writer.WriteString(detokenized + "\n"); err != nil {
			log.Fatal(err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}
	if err := writer.Flush(); err != nil {
		log.Fatal(err)
	}
	if err := outputFileHandle.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Detokenized %s lines into %s",
		humanize.Comma(int64(lines)), *outputFile)
}
