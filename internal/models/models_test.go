package models_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/models"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramNames(m *graph.Model) []string {
	var names []string
	for _, np := range m.NamedParameters() {
		names = append(names, np.Name)
	}
	return names
}

func TestNewRecommender(t *testing.T) {
	m, err := models.NewRecommender(models.RecommenderConfig{
		NumUsers:     10,
		NumItems:     6,
		EmbeddingDim: 3,
		HiddenUnits:  []int{8, 4},
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1}, m.OutputShape())
	assert.ElementsMatch(t, []string{
		"user_embedding.weight", "item_embedding.weight",
		"dense_1.kernel", "dense_1.bias",
		"dense_2.kernel", "dense_2.bias",
		"output.kernel", "output.bias",
	}, paramNames(m))

	// 10·3 + 6·3 + (6·8+8) + (8·4+4) + (4·1+1)
	assert.Equal(t, 30+18+56+36+5, m.NumParameters())

	users := tensor.MustFromSlice([]float64{0, 9, 3}, tensor.Shape{3, 1})
	items := tensor.MustFromSlice([]float64{5, 0, 2}, tensor.Shape{3, 1})
	out, err := m.Forward([]*tensor.Tensor{users, items}, nn.Mode{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 1}, out.Shape())
}

func TestNewRecommenderNoHidden(t *testing.T) {
	m, err := models.NewRecommender(models.RecommenderConfig{
		NumUsers:     2,
		NumItems:     2,
		EmbeddingDim: 4,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	// Merge width 8 feeds the output layer directly.
	assert.Equal(t, 8+8+8+1, m.NumParameters())
}

func TestNewClassifier(t *testing.T) {
	m, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize:    20,
		SeqLen:       6,
		EmbeddingDim: 4,
		KernelSize:   3,
		Filters:      5,
		HiddenUnits:  []int{3},
		Dropout:      0.5,
	}, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"embedding", "conv1d", "conv1d_relu", "global_max_pooling1d", "pool_dropout",
	}, layerNames(m.Branches()[0]))
	assert.Equal(t, []string{
		"dense_1", "dense_1_relu", "dropout_1", "output", "output_sigmoid",
	}, layerNames(m.Head()))

	// 20·4 + (12·5+5) + (5·3+3) + (3·1+1)
	assert.Equal(t, 80+65+18+4, m.NumParameters())

	tokens := tensor.MustFromSlice([]float64{
		1, 2, 3, 0, 0, 0,
		19, 18, 17, 16, 15, 14,
	}, tensor.Shape{2, 6})
	out, err := m.Forward([]*tensor.Tensor{tokens}, nn.Mode{})
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 1}, out.Shape())
	for _, p := range out.Data() {
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
}

func layerNames(c *graph.Chain) []string {
	var names []string
	for _, l := range c.Layers() {
		names = append(names, l.Name())
	}
	return names
}

func TestRecommenderConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   models.RecommenderConfig
		field string
	}{
		{"users", models.RecommenderConfig{NumItems: 1, EmbeddingDim: 1}, "num_users"},
		{"items", models.RecommenderConfig{NumUsers: 1, EmbeddingDim: 1}, "num_items"},
		{"dim", models.RecommenderConfig{NumUsers: 1, NumItems: 1}, "embedding_dim"},
		{"hidden", models.RecommenderConfig{NumUsers: 1, NumItems: 1, EmbeddingDim: 1, HiddenUnits: []int{4, 0}}, "hidden_units[1]"},
		{"dropout", models.RecommenderConfig{NumUsers: 1, NumItems: 1, EmbeddingDim: 1, Dropout: 1}, "dropout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.NewRecommender(tt.cfg, rand.New(rand.NewSource(1)))
			require.ErrorIs(t, err, nn.ErrConfig)
			var ce *nn.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestClassifierConfigErrors(t *testing.T) {
	valid := models.ClassifierConfig{VocabSize: 10, SeqLen: 5, EmbeddingDim: 2, KernelSize: 3, Filters: 2}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*models.ClassifierConfig)
		field  string
	}{
		{"vocab", func(c *models.ClassifierConfig) { c.VocabSize = 0 }, "vocab_size"},
		{"seq", func(c *models.ClassifierConfig) { c.SeqLen = -1 }, "seq_len"},
		{"filters", func(c *models.ClassifierConfig) { c.Filters = 0 }, "filters"},
		{"kernel too long", func(c *models.ClassifierConfig) { c.KernelSize = 6 }, "kernel_size"},
		{"dropout", func(c *models.ClassifierConfig) { c.Dropout = -0.1 }, "dropout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := models.NewClassifier(cfg, rand.New(rand.NewSource(1)))
			var ce *nn.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestClassifierKernelEqualsSeqLen(t *testing.T) {
	m, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize: 5, SeqLen: 3, EmbeddingDim: 2, KernelSize: 3, Filters: 2,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out, err := m.Forward([]*tensor.Tensor{tensor.Zeros(tensor.Shape{1, 3})}, nn.Mode{})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1}, out.Shape())
}
