package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wbrown/nmt_runner"
)

// Drives training, inference, and export of a French to English model
// through the OpenNMT-tf command line tools.

var (
	steps      int
	configPath string
	onmtBinary string
)

func actionNames() []string {
	names := make([]string, len(nmt_runner.Actions))
	for idx, action := range nmt_runner.Actions {
		names[idx] = string(action)
	}
	return names
}

var rootCmd = &cobra.Command{
	Use:   "nmt_runner {" + strings.Join(actionNames(), "|") + "}",
	Short: "Train, translate with, and export an OpenNMT-tf model",
	Long: `nmt_runner maps each action onto the translation framework:
  train       trains the model, evaluating on the test split when configured
  translate   writes predictions for the evaluation features file
  export      exports a SavedModel for serving
  export-csv  writes a source/reference/translation comparison CSV`,
	ValidArgs:     actionNames(),
	Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().IntVar(&steps, "steps", nmt_runner.DEFAULT_STEPS,
		"number of training steps")
	rootCmd.Flags().StringVar(&configPath, "config", "",
		"YAML run configuration; defaults are used when empty")
	rootCmd.Flags().StringVar(&onmtBinary, "onmt",
		nmt_runner.DEFAULT_ONMT_BINARY, "framework runner executable")
}

func run(cmd *cobra.Command, args []string) error {
	action, err := nmt_runner.ParseAction(args[0])
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(configPath, steps,
		cmd.Flags().Changed("steps"))
	if err != nil {
		return err
	}

	runner := nmt_runner.NewRunner(*cfg, nmt_runner.NewExecExecutor())
	runner.ONMTBinary = onmtBinary

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runner.Run(ctx, action)
}

// resolveConfig
// Loads the run configuration. max_step from the defaults, the file, or
// NMT_TRAIN_MAX_STEP stands unless --steps was given explicitly.
func resolveConfig(path string, steps int, stepsSet bool) (
	*nmt_runner.RunConfig, error) {
	cfg, err := nmt_runner.LoadRunConfig(path)
	if err != nil {
		return nil, err
	}
	if !stepsSet {
		return cfg, nil
	}
	stepped := cfg.WithSteps(steps)
	if err := stepped.Validate(); err != nil {
		return nil, err
	}
	return &stepped, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
