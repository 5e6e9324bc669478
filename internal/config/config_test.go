package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/embednet/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classifyYAML = `
task: classify
seed: 7
data:
  path: reviews.tsv
  validation_split: 0.2
model:
  embedding_dim: 16
  hidden_units: [8]
  dropout: 0.25
  seq_len: 40
  kernel_size: 5
  filters: 32
  padding: post
train:
  epochs: 20
  batch_size: 16
  lr: 0.005
output: model.embn
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeFile(t, classifyYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, config.TaskClassify, cfg.Task)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "reviews.tsv", cfg.Data.Path)
	assert.InDelta(t, 0.2, cfg.Data.ValidationSplit, 1e-12)
	assert.Equal(t, []int{8}, cfg.Model.HiddenUnits)
	assert.Equal(t, 40, cfg.Model.SeqLen)
	assert.Equal(t, "post", cfg.Model.Padding)
	assert.Equal(t, 20, cfg.Train.Epochs)
	assert.Equal(t, "model.embn", cfg.Output)

	// Unset fields keep their defaults.
	assert.Equal(t, "adam", cfg.Train.Optimizer)
	assert.Equal(t, "cl100k_base", cfg.Model.Encoding)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(writeFile(t, "task: recommend\nunknown_key: 1\n"))
	require.Error(t, err)

	_, err = config.Load(writeFile(t, "train:\n  epochs: many\n"))
	require.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := config.Parse([]byte(classifyYAML))
	require.NoError(t, err)

	cfg.ApplyOverrides(config.Overrides{Epochs: 3, LR: 0.1, DataPath: "other.tsv"})
	assert.Equal(t, 3, cfg.Train.Epochs)
	assert.InDelta(t, 0.1, cfg.Train.LR, 1e-12)
	assert.Equal(t, "other.tsv", cfg.Data.Path)
	assert.Equal(t, 16, cfg.Train.BatchSize, "zero override leaves value")
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.Default()
		cfg.Task = config.TaskClassify
		cfg.Data.Path = "x.tsv"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown task", func(c *config.Config) { c.Task = "cluster" }},
		{"no data", func(c *config.Config) { c.Data.Path = "" }},
		{"split", func(c *config.Config) { c.Data.ValidationSplit = 1 }},
		{"embedding dim", func(c *config.Config) { c.Model.EmbeddingDim = 0 }},
		{"hidden", func(c *config.Config) { c.Model.HiddenUnits = []int{4, -1} }},
		{"dropout", func(c *config.Config) { c.Model.Dropout = 1 }},
		{"kernel exceeds seq", func(c *config.Config) { c.Model.KernelSize = c.Model.SeqLen + 1 }},
		{"padding", func(c *config.Config) { c.Model.Padding = "middle" }},
		{"epochs", func(c *config.Config) { c.Train.Epochs = 0 }},
		{"batch", func(c *config.Config) { c.Train.BatchSize = 0 }},
		{"lr", func(c *config.Config) { c.Train.LR = 0 }},
		{"optimizer", func(c *config.Config) { c.Train.Optimizer = "rmsprop" }},
		{"momentum", func(c *config.Config) { c.Train.Optimizer = "sgd"; c.Train.Momentum = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	// Classifier-only fields are ignored for the recommender.
	rec := valid()
	rec.Task = config.TaskRecommend
	rec.Model.Padding = ""
	require.NoError(t, rec.Validate())

	var nilCfg *config.Config
	require.Error(t, nilCfg.Validate())
}
