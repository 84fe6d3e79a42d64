package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/wbrown/nmt_runner"
	"github.com/wbrown/nmt_runner/chat"
	"github.com/wbrown/nmt_runner/serving"
	"github.com/wbrown/nmt_runner/tokenizer"
)

// An interactive French to English chat against an exported model.

func main() {
	exportDir := flag.String("model", "exported_model/",
		"exported model directory to serve")
	servingURL := flag.String("serving_url", "",
		"use an already running TensorFlow Serving REST endpoint")
	modelName := flag.String("model_name", serving.DEFAULT_MODEL_NAME,
		"model name on the serving endpoint")
	lambdaFn := flag.String("lambda", "",
		"use the model hosted by this Lambda function")
	serverBinary := flag.String("server_binary",
		serving.DEFAULT_SERVER_BINARY, "model server executable")
	port := flag.Int("port", serving.DEFAULT_REST_PORT,
		"REST port for the launched model server")
	useGPU := flag.Bool("use_gpu", false,
		"allow the launched model server to use GPUs")
	visibleDevices := flag.String("visible_devices", "",
		"GPU ordinals the model server may use, e.g. 0,1")
	configPath := flag.String("config", "",
		"run configuration to take tokenization and device settings from")
	tokenizerType := flag.String("tokenizer", "",
		"tokenizer type [space, sentencepiece]")
	spModel := flag.String("sp_model", "",
		"SentencePiece model file")
	lowercase := flag.Bool("lowercase", false,
		"lowercase input before tokenization")
	splitSentences := flag.Bool("split_sentences", false,
		"translate each sentence of a line separately")
	detokenize := flag.Bool("detokenize", false,
		"detokenize the model output")
	inspect := flag.Bool("inspect", false,
		"print a summary of the SentencePiece model before chatting")
	flag.Parse()

	var tokCfg tokenizer.Config
	device := serving.DeviceConfig{
		UseGPU:         *useGPU,
		VisibleDevices: *visibleDevices,
	}
	if *configPath != "" {
		cfg, err := nmt_runner.LoadRunConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		tokCfg = cfg.Tokenization
		device.UseGPU = device.UseGPU || cfg.UseGPU
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
	tokCfg.Lowercase = tokCfg.Lowercase || *lowercase

	if *inspect {
		if tokCfg.Model == "" {
			log.Fatal("-inspect requires a SentencePiece model")
		}
		summary, err := tokenizer.InspectModel(tokCfg.Model)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%s: %s pieces (%s normal, %d byte, %d control, "+
			"%d user defined)", tokCfg.Model,
			humanize.Comma(int64(summary.Pieces)),
			humanize.Comma(int64(summary.Normal)), summary.Bytes,
			summary.Control, summary.UserDefined)
		log.Printf("Special pieces: %v", summary.Specials)
	}

	tok, err := tokenizer.New(tokCfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var signature serving.Signature
	var server *serving.Server
	switch {
	case *lambdaFn != "":
		signature, err = serving.NewLambdaClient(ctx, *lambdaFn)
		if err != nil {
			log.Fatal(err)
		}
	case *servingURL != "":
		signature = serving.NewRESTClient(*servingURL, *modelName)
	default:
		fmt.Println("Chargement du modèle exporté...")
		server = serving.NewServer(*exportDir, device)
		server.Binary = *serverBinary
		server.RESTPort = *port
		server.ModelName = *modelName
		client, err := server.Start(ctx)
		if err != nil {
			log.Fatal(err)
		}
		signature = client
	}

	session := chat.NewSession(tok, signature, os.Stdin, os.Stdout)
	session.SplitSentences = *splitSentences
	session.Detokenize = *detokenize
	err = session.Run(ctx)
	if server != nil {
		if closeErr := server.Close(); closeErr != nil {
			log.Printf("Stopping model server: %v", closeErr)
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}
