// Package models builds the two reference architectures on top of internal/graph.
//
//   - Recommender: (user id, item id) → rating. Two embedding towers are
//     flattened, concatenated and fed through a dense head.
//   - Classifier: padded token sequence → probability. Embedding, Conv1D,
//     global max pooling, optional dropout and a sigmoid output.
//
// Every hyperparameter is validated before any parameter is allocated.
package models

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
)

// RecommenderConfig configures NewRecommender.
type RecommenderConfig struct {
	NumUsers     int     // Size of the user id space
	NumItems     int     // Size of the item id space
	EmbeddingDim int     // Latent factors per user and per item
	HiddenUnits  []int   // Widths of the ReLU dense layers between the merge and the output
	Dropout      float64 // Dropout after each hidden layer (0 disables)
}

// Validate reports the first invalid field as a ConfigError.
func (c RecommenderConfig) Validate() error {
	if err := positive("recommender", "num_users", c.NumUsers); err != nil {
		return err
	}
	if err := positive("recommender", "num_items", c.NumItems); err != nil {
		return err
	}
	if err := positive("recommender", "embedding_dim", c.EmbeddingDim); err != nil {
		return err
	}
	for i, h := range c.HiddenUnits {
		if err := positive("recommender", fmt.Sprintf("hidden_units[%d]", i), h); err != nil {
			return err
		}
	}
	return dropoutRate("recommender", c.Dropout)
}

// NewRecommender builds the latent-factor rating model.
//
// Inputs: "user" and "item", each a (batch, 1) tensor of ids.
// Output: (batch, 1) predicted rating (linear).
//
// Parameter names: user_embedding.weight, item_embedding.weight,
// dense_1.kernel, dense_1.bias, ..., output.kernel, output.bias.
func NewRecommender(cfg RecommenderConfig, rng *rand.Rand) (*graph.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	users, err := nn.NewEmbedding("user_embedding", cfg.NumUsers, cfg.EmbeddingDim, rng)
	if err != nil {
		return nil, err
	}
	items, err := nn.NewEmbedding("item_embedding", cfg.NumItems, cfg.EmbeddingDim, rng)
	if err != nil {
		return nil, err
	}

	head, err := denseStack(2*cfg.EmbeddingDim, cfg.HiddenUnits, cfg.Dropout, rng)
	if err != nil {
		return nil, err
	}
	out, err := nn.NewDense("output", lastWidth(2*cfg.EmbeddingDim, cfg.HiddenUnits), 1, rng)
	if err != nil {
		return nil, err
	}
	head.Add(out)

	return graph.Build("recommender",
		[]graph.Input{
			{Name: "user", Shape: tensor.Shape{1}},
			{Name: "item", Shape: tensor.Shape{1}},
		},
		[]*graph.Chain{
			graph.NewChain("user", users, nn.NewFlatten("user_flatten")),
			graph.NewChain("item", items, nn.NewFlatten("item_flatten")),
		},
		head,
	)
}

// ClassifierConfig configures NewClassifier.
type ClassifierConfig struct {
	VocabSize    int     // Token id space, including the padding id 0
	SeqLen       int     // Fixed (padded) sequence length
	EmbeddingDim int     // Embedding width per token
	KernelSize   int     // Conv1D window length
	Filters      int     // Conv1D output channels
	HiddenUnits  []int   // Widths of the ReLU dense layers after pooling
	Dropout      float64 // Dropout after pooling and after each hidden layer (0 disables)
}

// Validate reports the first invalid field as a ConfigError.
func (c ClassifierConfig) Validate() error {
	checks := []struct {
		field string
		value int
	}{
		{"vocab_size", c.VocabSize},
		{"seq_len", c.SeqLen},
		{"embedding_dim", c.EmbeddingDim},
		{"kernel_size", c.KernelSize},
		{"filters", c.Filters},
	}
	for _, ch := range checks {
		if err := positive("classifier", ch.field, ch.value); err != nil {
			return err
		}
	}
	if c.KernelSize > c.SeqLen {
		return &nn.ConfigError{
			Layer:  "classifier",
			Field:  "kernel_size",
			Value:  c.KernelSize,
			Reason: fmt.Sprintf("exceeds sequence length %d", c.SeqLen),
		}
	}
	for i, h := range c.HiddenUnits {
		if err := positive("classifier", fmt.Sprintf("hidden_units[%d]", i), h); err != nil {
			return err
		}
	}
	return dropoutRate("classifier", c.Dropout)
}

// NewClassifier builds the convolutional sequence classifier.
//
// Input: "tokens", a (batch, SeqLen) tensor of ids.
// Output: (batch, 1) probability of the positive class.
func NewClassifier(cfg ClassifierConfig, rng *rand.Rand) (*graph.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	emb, err := nn.NewEmbedding("embedding", cfg.VocabSize, cfg.EmbeddingDim, rng)
	if err != nil {
		return nil, err
	}
	conv, err := nn.NewConv1D("conv1d", cfg.KernelSize, cfg.EmbeddingDim, cfg.Filters, rng)
	if err != nil {
		return nil, err
	}
	branch := graph.NewChain("tokens",
		emb,
		conv,
		nn.NewReLU("conv1d_relu"),
		nn.NewGlobalMaxPool1D("global_max_pooling1d"),
	)
	if cfg.Dropout > 0 {
		drop, err := nn.NewDropout("pool_dropout", cfg.Dropout)
		if err != nil {
			return nil, err
		}
		branch.Add(drop)
	}

	head, err := denseStack(cfg.Filters, cfg.HiddenUnits, cfg.Dropout, rng)
	if err != nil {
		return nil, err
	}
	out, err := nn.NewDense("output", lastWidth(cfg.Filters, cfg.HiddenUnits), 1, rng)
	if err != nil {
		return nil, err
	}
	head.Add(out)
	head.Add(nn.NewSigmoid("output_sigmoid"))

	return graph.Build("classifier",
		[]graph.Input{{Name: "tokens", Shape: tensor.Shape{cfg.SeqLen}}},
		[]*graph.Chain{branch},
		head,
	)
}

// denseStack builds dense_1..dense_n with ReLU (and optional dropout) after each.
func denseStack(in int, widths []int, dropout float64, rng *rand.Rand) (*graph.Chain, error) {
	head := graph.NewChain("head")
	for i, w := range widths {
		d, err := nn.NewDense(fmt.Sprintf("dense_%d", i+1), in, w, rng)
		if err != nil {
			return nil, err
		}
		head.Add(d)
		head.Add(nn.NewReLU(fmt.Sprintf("dense_%d_relu", i+1)))
		if dropout > 0 {
			drop, err := nn.NewDropout(fmt.Sprintf("dropout_%d", i+1), dropout)
			if err != nil {
				return nil, err
			}
			head.Add(drop)
		}
		in = w
	}
	return head, nil
}

func lastWidth(in int, widths []int) int {
	if len(widths) == 0 {
		return in
	}
	return widths[len(widths)-1]
}

func positive(component, field string, v int) error {
	if v <= 0 {
		return &nn.ConfigError{Layer: component, Field: field, Value: v, Reason: "must be > 0"}
	}
	return nil
}

func dropoutRate(component string, p float64) error {
	if p < 0 || p >= 1 {
		return &nn.ConfigError{Layer: component, Field: "dropout", Value: p, Reason: "must be in [0, 1)"}
	}
	return nil
}
