package nmt_runner

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/wbrown/nmt_runner/tokenizer"
)

type Action string

const (
	ACTION_TRAIN      Action = "train"
	ACTION_TRANSLATE  Action = "translate"
	ACTION_EXPORT     Action = "export"
	ACTION_EXPORT_CSV Action = "export-csv"
)

var Actions = []Action{ACTION_TRAIN, ACTION_TRANSLATE, ACTION_EXPORT,
	ACTION_EXPORT_CSV}

const (
	DEFAULT_ONMT_BINARY        = "onmt-main"
	DEFAULT_BUILD_VOCAB_BINARY = "onmt-build-vocab"

	RENDERED_CONFIG_FILE  = "nmt_runner.yml"
	MODEL_DEFINITION_FILE = "model_definition.py"
)

func ParseAction(name string) (Action, error) {
	for _, action := range Actions {
		if string(action) == name {
			return action, nil
		}
	}
	names := make([]string, len(Actions))
	for idx, action := range Actions {
		names[idx] = string(action)
	}
	return "", errors.Errorf("unknown action %q, expected one of [%s]", name,
		strings.Join(names, ", "))
}

// Runner maps actions onto invocations of the translation framework. It
// owns no training, inference, or export logic of its own.
type Runner struct {
	Config     RunConfig
	Exec       Executor
	ONMTBinary string
	// BaseEnv is the environment commands start from; nil means the
	// current process environment.
	BaseEnv []string
}

func NewRunner(cfg RunConfig, exec Executor) *Runner {
	return &Runner{
		Config:     cfg,
		Exec:       exec,
		ONMTBinary: DEFAULT_ONMT_BINARY,
	}
}

// Run performs action and returns the first error encountered.
func (r *Runner) Run(ctx context.Context, action Action) error {
	switch action {
	case ACTION_TRAIN, ACTION_TRANSLATE, ACTION_EXPORT:
		cmd, err := r.Command(action)
		if err != nil {
			return err
		}
		log.Printf("Running %s: %s", action, cmd)
		return r.Exec.Run(ctx, *cmd)
	case ACTION_EXPORT_CSV:
		return r.exportComparison()
	default:
		return errors.Errorf("unknown action %q", action)
	}
}

// Command
// Prepares the model directory and returns the framework invocation for
// action.
func (r *Runner) Command(action Action) (*Command, error) {
	cfg := &r.Config
	if err := os.MkdirAll(cfg.ModelDir, 0755); err != nil {
		return nil, err
	}
	configPath := filepath.Join(cfg.ModelDir, RENDERED_CONFIG_FILE)
	if err := cfg.WriteONMTConfig(configPath); err != nil {
		return nil, errors.Wrap(err, "writing framework config")
	}

	args := make([]string, 0)
	if !cfg.Model.IsZero() {
		modelPath := filepath.Join(cfg.ModelDir, MODEL_DEFINITION_FILE)
		if err := cfg.WriteModelDefinition(modelPath); err != nil {
			return nil, errors.Wrap(err, "writing model definition")
		}
		args = append(args, "--model", modelPath)
	} else {
		args = append(args, "--model_type", cfg.ModelType)
	}
	args = append(args, "--config", configPath, "--auto_config")
	if cfg.MixedPrecision {
		args = append(args, "--mixed_precision")
	}

	switch action {
	case ACTION_TRAIN:
		args = append(args, "train")
		if cfg.Data.EvalFeaturesFile != "" {
			args = append(args, "--with_eval")
		}
	case ACTION_TRANSLATE:
		if cfg.Data.EvalFeaturesFile == "" {
			return nil, errors.New("translate requires " +
				"data.eval_features_file")
		}
		args = append(args, "infer",
			"--features_file", cfg.Data.EvalFeaturesFile,
			"--predictions_file", cfg.Output.PredictionsFile)
	case ACTION_EXPORT:
		args = append(args, "export",
			"--output_dir", cfg.Output.ExportDir,
			"--format", "saved_model")
	default:
		return nil, errors.Errorf("%s does not invoke the framework", action)
	}

	base := r.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	return &Command{
		Name: r.ONMTBinary,
		Args: args,
		Env:  cfg.Device().Environ(base),
	}, nil
}

func (r *Runner) exportComparison() error {
	cfg := &r.Config
	if cfg.Data.EvalFeaturesFile == "" {
		return errors.New("export-csv requires data.eval_features_file")
	}
	var detokenize func(string) string
	if cfg.Output.DetokenizeHypotheses {
		tok, err := tokenizer.New(cfg.Tokenization)
		if err != nil {
			return err
		}
		detokenize = func(line string) string {
			return tok.Detokenize(strings.Fields(line))
		}
	}
	rows, err := ExportComparison(cfg.Data.EvalFeaturesFile,
		cfg.Data.EvalLabelsFile, cfg.Output.PredictionsFile,
		cfg.Output.ComparisonFile, detokenize)
	if err != nil {
		return err
	}
	log.Printf("Wrote %d rows to %s", rows, cfg.Output.ComparisonFile)
	return nil
}
