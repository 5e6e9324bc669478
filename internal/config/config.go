// Package config loads YAML experiment files for the embednet CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Tasks.
const (
	TaskRecommend = "recommend"
	TaskClassify  = "classify"
)

// Config captures one experiment.
type Config struct {
	Task   string      `yaml:"task"`
	Seed   int64       `yaml:"seed"`
	Data   DataConfig  `yaml:"data"`
	Model  ModelConfig `yaml:"model"`
	Train  TrainConfig `yaml:"train"`
	Output string      `yaml:"output"` // Parameter file written after training (optional)
}

// DataConfig locates the training data.
type DataConfig struct {
	Path            string  `yaml:"path"`
	ValidationSplit float64 `yaml:"validation_split"` // 0 disables validation
}

// ModelConfig holds architecture hyperparameters.
type ModelConfig struct {
	EmbeddingDim int     `yaml:"embedding_dim"`
	HiddenUnits  []int   `yaml:"hidden_units"`
	Dropout      float64 `yaml:"dropout"`

	// Classifier only.
	SeqLen     int    `yaml:"seq_len"`
	KernelSize int    `yaml:"kernel_size"`
	Filters    int    `yaml:"filters"`
	Padding    string `yaml:"padding"`  // "pre" or "post"
	Encoding   string `yaml:"encoding"` // tiktoken encoding name
}

// TrainConfig holds optimizer and loop settings.
type TrainConfig struct {
	Epochs    int     `yaml:"epochs"`
	BatchSize int     `yaml:"batch_size"`
	Optimizer string  `yaml:"optimizer"` // "adam" or "sgd"
	LR        float64 `yaml:"lr"`
	Momentum  float64 `yaml:"momentum"` // sgd only
}

// Overrides captures CLI supplied values. Zero values are ignored.
type Overrides struct {
	DataPath  string
	Output    string
	Epochs    int
	BatchSize int
	LR        float64
	Seed      int64
}

// Default returns the configuration used for fields a file leaves unset.
func Default() *Config {
	return &Config{
		Seed: 1,
		Model: ModelConfig{
			EmbeddingDim: 8,
			KernelSize:   3,
			Filters:      16,
			SeqLen:       32,
			Padding:      "pre",
			Encoding:     "cl100k_base",
		},
		Train: TrainConfig{
			Epochs:    10,
			BatchSize: 32,
			Optimizer: "adam",
			LR:        0.001,
		},
	}
}

// Load reads a Config from a YAML file on top of Default. Unknown keys are
// rejected. The result is not validated; call ApplyOverrides then Validate.
func Load(path string) (*Config, error) {
	//nolint:gosec // G304: path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataPath != "" {
		c.Data.Path = o.DataPath
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Epochs > 0 {
		c.Train.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.Train.BatchSize = o.BatchSize
	}
	if o.LR > 0 {
		c.Train.LR = o.LR
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Task {
	case TaskRecommend, TaskClassify:
	default:
		return fmt.Errorf("task must be %q or %q (got %q)", TaskRecommend, TaskClassify, c.Task)
	}
	if c.Data.Path == "" {
		return errors.New("data.path must be set")
	}
	if c.Data.ValidationSplit < 0 || c.Data.ValidationSplit >= 1 {
		return fmt.Errorf("data.validation_split must be in [0, 1) (got %v)", c.Data.ValidationSplit)
	}

	m := c.Model
	if m.EmbeddingDim <= 0 {
		return fmt.Errorf("model.embedding_dim must be > 0 (got %d)", m.EmbeddingDim)
	}
	for i, h := range m.HiddenUnits {
		if h <= 0 {
			return fmt.Errorf("model.hidden_units[%d] must be > 0 (got %d)", i, h)
		}
	}
	if m.Dropout < 0 || m.Dropout >= 1 {
		return fmt.Errorf("model.dropout must be in [0, 1) (got %v)", m.Dropout)
	}
	if c.Task == TaskClassify {
		if m.SeqLen <= 0 {
			return fmt.Errorf("model.seq_len must be > 0 (got %d)", m.SeqLen)
		}
		if m.KernelSize <= 0 || m.KernelSize > m.SeqLen {
			return fmt.Errorf("model.kernel_size must be in [1, seq_len=%d] (got %d)", m.SeqLen, m.KernelSize)
		}
		if m.Filters <= 0 {
			return fmt.Errorf("model.filters must be > 0 (got %d)", m.Filters)
		}
		if m.Padding != "pre" && m.Padding != "post" {
			return fmt.Errorf("model.padding must be \"pre\" or \"post\" (got %q)", m.Padding)
		}
		if m.Encoding == "" {
			return errors.New("model.encoding must be set")
		}
	}

	t := c.Train
	if t.Epochs <= 0 {
		return fmt.Errorf("train.epochs must be > 0 (got %d)", t.Epochs)
	}
	if t.BatchSize <= 0 {
		return fmt.Errorf("train.batch_size must be > 0 (got %d)", t.BatchSize)
	}
	if t.LR <= 0 {
		return fmt.Errorf("train.lr must be > 0 (got %v)", t.LR)
	}
	switch t.Optimizer {
	case "adam":
	case "sgd":
		if t.Momentum < 0 || t.Momentum >= 1 {
			return fmt.Errorf("train.momentum must be in [0, 1) (got %v)", t.Momentum)
		}
	default:
		return fmt.Errorf("train.optimizer must be \"adam\" or \"sgd\" (got %q)", t.Optimizer)
	}
	return nil
}
