package nmt_runner

import (
	"bytes"
	"io"
	"os"
	"text/template"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/wbrown/nmt_runner/serving"
	"github.com/wbrown/nmt_runner/tokenizer"
	"gopkg.in/yaml.v3"
)

const DEFAULT_STEPS = 5000

type TrainConfig struct {
	BatchSize            int `yaml:"batch_size" env:"NMT_TRAIN_BATCH_SIZE"`
	EffectiveBatchSize   int `yaml:"effective_batch_size" env:"NMT_TRAIN_EFFECTIVE_BATCH_SIZE"`
	MaxStep              int `yaml:"max_step" env:"NMT_TRAIN_MAX_STEP"`
	SaveCheckpointsSteps int `yaml:"save_checkpoints_steps,omitempty"`
	KeepCheckpointMax    int `yaml:"keep_checkpoint_max,omitempty"`
}

type DataConfig struct {
	SourceVocabulary  string `yaml:"source_vocabulary"`
	TargetVocabulary  string `yaml:"target_vocabulary"`
	TrainFeaturesFile string `yaml:"train_features_file"`
	TrainLabelsFile   string `yaml:"train_labels_file"`
	EvalFeaturesFile  string `yaml:"eval_features_file,omitempty"`
	EvalLabelsFile    string `yaml:"eval_labels_file,omitempty"`
}

type ParamsConfig struct {
	Optimizer         string  `yaml:"optimizer,omitempty"`
	LearningRate      float64 `yaml:"learning_rate,omitempty"`
	DecayType         string  `yaml:"decay_type,omitempty"`
	BeamWidth         int     `yaml:"beam_width,omitempty"`
	AverageLossInTime bool    `yaml:"average_loss_in_time,omitempty"`
}

// EvalConfig controls evaluation during training. Steps is the interval
// between evaluations.
type EvalConfig struct {
	BatchSize          int    `yaml:"batch_size,omitempty"`
	Steps              int    `yaml:"steps,omitempty"`
	ExternalEvaluators string `yaml:"external_evaluators,omitempty"`
}

type InferConfig struct {
	BatchSize  int  `yaml:"batch_size,omitempty"`
	NBest      int  `yaml:"n_best,omitempty"`
	WithScores bool `yaml:"with_scores,omitempty"`
}

// ModelConfig sizes the Transformer. A zero value leaves the architecture
// to the catalog model named by RunConfig.ModelType.
type ModelConfig struct {
	NumLayers   int     `yaml:"num_layers,omitempty"`
	NumUnits    int     `yaml:"num_units,omitempty"`
	NumHeads    int     `yaml:"num_heads,omitempty"`
	FFNInnerDim int     `yaml:"ffn_inner_dim,omitempty"`
	Dropout     float64 `yaml:"dropout,omitempty"`
}

func (m ModelConfig) IsZero() bool {
	return m == ModelConfig{}
}

type OutputConfig struct {
	PredictionsFile string `yaml:"predictions_file" env:"NMT_PREDICTIONS_FILE"`
	ExportDir       string `yaml:"export_dir" env:"NMT_EXPORT_DIR"`
	ComparisonFile  string `yaml:"comparison_file" env:"NMT_COMPARISON_FILE"`
	// DetokenizeHypotheses runs predictions through the configured
	// tokenizer's detokenization before they are written to the
	// comparison file.
	DetokenizeHypotheses bool `yaml:"detokenize_hypotheses,omitempty"`
}

// RunConfig is everything a training, inference, or export run needs. It
// is built once per process and not modified afterwards.
type RunConfig struct {
	ModelDir       string           `yaml:"model_dir" env:"NMT_MODEL_DIR"`
	ModelType      string           `yaml:"model_type" env:"NMT_MODEL_TYPE"`
	UseGPU         bool             `yaml:"use_gpu" env:"NMT_USE_GPU"`
	MixedPrecision bool             `yaml:"mixed_precision,omitempty" env:"NMT_MIXED_PRECISION"`
	Train          TrainConfig      `yaml:"train"`
	Data           DataConfig       `yaml:"data"`
	Params         ParamsConfig     `yaml:"params"`
	Eval           EvalConfig       `yaml:"eval"`
	Infer          InferConfig      `yaml:"infer"`
	Model          ModelConfig      `yaml:"model"`
	Output         OutputConfig     `yaml:"output"`
	Tokenization   tokenizer.Config `yaml:"tokenization"`
}

// DefaultRunConfig
// Returns the configuration of a small French to English Transformer
// trained on the files written by the data splitter.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ModelDir:  "model-checkpoints/",
		ModelType: "Transformer",
		Train: TrainConfig{
			BatchSize:          64,
			EffectiveBatchSize: 1024,
			MaxStep:            DEFAULT_STEPS,
		},
		Data: DataConfig{
			SourceVocabulary:  "data/vocab.fr",
			TargetVocabulary:  "data/vocab.en",
			TrainFeaturesFile: "data/train.fr",
			TrainLabelsFile:   "data/train.en",
			EvalFeaturesFile:  "data/test.fr",
			EvalLabelsFile:    "data/test.en",
		},
		Eval:  EvalConfig{BatchSize: 32},
		Infer: InferConfig{BatchSize: 32},
		Model: ModelConfig{
			NumLayers:   2,
			NumUnits:    128,
			NumHeads:    4,
			FFNInnerDim: 256,
			Dropout:     0.1,
		},
		Output: OutputConfig{
			PredictionsFile: "data/predictions.en",
			ExportDir:       "exported_model/",
			ComparisonFile:  "comparison.csv",
		},
	}
}

// LoadRunConfig
// Starts from DefaultRunConfig, overlays the YAML file at path when path
// is not empty, then NMT_* environment variables, and validates the
// result.
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RunConfig) Validate() error {
	required := map[string]string{
		"model_dir":                c.ModelDir,
		"data.source_vocabulary":   c.Data.SourceVocabulary,
		"data.target_vocabulary":   c.Data.TargetVocabulary,
		"data.train_features_file": c.Data.TrainFeaturesFile,
		"data.train_labels_file":   c.Data.TrainLabelsFile,
		"output.predictions_file":  c.Output.PredictionsFile,
		"output.export_dir":        c.Output.ExportDir,
		"output.comparison_file":   c.Output.ComparisonFile,
	}
	for _, name := range sortedKeys(required) {
		if required[name] == "" {
			return errors.Errorf("%s is required", name)
		}
	}
	if c.ModelType == "" && c.Model.IsZero() {
		return errors.New("either model_type or model must be set")
	}
	if (c.Data.EvalFeaturesFile == "") != (c.Data.EvalLabelsFile == "") {
		return errors.New("data.eval_features_file and " +
			"data.eval_labels_file must be set together")
	}
	if c.Train.BatchSize <= 0 {
		return errors.New("train.batch_size must be positive")
	}
	if c.Train.EffectiveBatchSize < 0 {
		return errors.New("train.effective_batch_size must not be negative")
	}
	if c.Train.MaxStep <= 0 {
		return errors.New("train.max_step must be positive")
	}
	if c.Eval.BatchSize < 0 || c.Eval.Steps < 0 {
		return errors.New("eval.batch_size and eval.steps must not be " +
			"negative")
	}
	if c.Infer.BatchSize < 0 || c.Infer.NBest < 0 {
		return errors.New("infer.batch_size and infer.n_best must not be " +
			"negative")
	}
	if !c.Model.IsZero() {
		if c.Model.NumLayers <= 0 || c.Model.NumUnits <= 0 ||
			c.Model.NumHeads <= 0 || c.Model.FFNInnerDim <= 0 {
			return errors.New("model dimensions must be positive")
		}
		if c.Model.NumUnits%c.Model.NumHeads != 0 {
			return errors.Errorf("model.num_units (%d) must be divisible "+
				"by model.num_heads (%d)", c.Model.NumUnits,
				c.Model.NumHeads)
		}
	}
	if c.Model.Dropout < 0 || c.Model.Dropout >= 1 {
		return errors.New("model.dropout must be in [0, 1)")
	}
	return c.Tokenization.Validate()
}

// WithSteps returns a copy of the configuration training for steps steps.
func (c RunConfig) WithSteps(steps int) RunConfig {
	c.Train.MaxStep = steps
	return c
}

// Device is the accelerator configuration handed to launched processes.
func (c *RunConfig) Device() serving.DeviceConfig {
	return serving.DeviceConfig{UseGPU: c.UseGPU}
}

// ONMTConfig
// Renders the subset of the configuration the translation framework reads
// from its YAML configuration file.
func (c *RunConfig) ONMTConfig() map[string]interface{} {
	cfg := map[string]interface{}{
		"model_dir": c.ModelDir,
		"data":      c.Data,
		"train":     c.Train,
	}
	if c.Params != (ParamsConfig{}) {
		cfg["params"] = c.Params
	}
	if c.Eval != (EvalConfig{}) {
		cfg["eval"] = c.Eval
	}
	if c.Infer != (InferConfig{}) {
		cfg["infer"] = c.Infer
	}
	return cfg
}

// WriteONMTConfig writes ONMTConfig as YAML to path.
func (c *RunConfig) WriteONMTConfig(path string) error {
	encoded, err := yaml.Marshal(c.ONMTConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}

var modelDefinition = template.Must(template.New("model").Parse(
	`import opennmt


def model():
    return opennmt.models.Transformer(
        num_layers={{.NumLayers}},
        num_units={{.NumUnits}},
        num_heads={{.NumHeads}},
        ffn_inner_dim={{.FFNInnerDim}},
        dropout={{.Dropout}},
        attention_dropout={{.Dropout}},
        ffn_dropout={{.Dropout}},
    )
`))

// WriteModelDefinition
// Writes a model definition file describing the configured Transformer
// dimensions, for the framework's --model flag.
func (c *RunConfig) WriteModelDefinition(path string) error {
	var buf bytes.Buffer
	if err := modelDefinition.Execute(&buf, c.Model); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
