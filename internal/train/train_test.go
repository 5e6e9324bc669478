package train_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/models"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/optim"
	"github.com/born-ml/embednet/internal/tensor"
	"github.com/born-ml/embednet/internal/train"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ratings returns every (user, item) pair of a 5×4 grid with a deterministic
// rating in [1, 5].
func ratings(t *testing.T) *train.Dataset {
	t.Helper()
	var users, items, targets []float64
	for u := 0; u < 5; u++ {
		for i := 0; i < 4; i++ {
			users = append(users, float64(u))
			items = append(items, float64(i))
			targets = append(targets, float64(1+(u+2*i)%5))
		}
	}
	n := len(targets)
	ds, err := train.NewDataset(
		[]*tensor.Tensor{
			tensor.MustFromSlice(users, tensor.Shape{n, 1}),
			tensor.MustFromSlice(items, tensor.Shape{n, 1}),
		},
		tensor.MustFromSlice(targets, tensor.Shape{n, 1}),
	)
	require.NoError(t, err)
	return ds
}

func recommender(t *testing.T, seed int64) *graph.Model {
	t.Helper()
	m, err := models.NewRecommender(models.RecommenderConfig{
		NumUsers:     5,
		NumItems:     4,
		EmbeddingDim: 2,
		HiddenUnits:  []int{8},
	}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return m
}

// sequences builds n sequences of 3 to 10 tokens over ids 1..49, pre-padded
// with id 0 to length 10. Even rows contain token 7 (label 1); odd rows never
// do (label 0).
func sequences(t *testing.T, n int, rng *rand.Rand) *train.Dataset {
	t.Helper()
	const seqLen = 10
	tokens := make([]float64, 0, n*seqLen)
	labels := make([]float64, n)
	for r := 0; r < n; r++ {
		length := 3 + rng.Intn(seqLen-2)
		row := make([]float64, seqLen)
		for j := seqLen - length; j < seqLen; j++ {
			id := 7
			for id == 7 {
				id = 1 + rng.Intn(49)
			}
			row[j] = float64(id)
		}
		if r%2 == 0 {
			row[seqLen-length+rng.Intn(length)] = 7
			labels[r] = 1
		}
		tokens = append(tokens, row...)
	}
	ds, err := train.NewDataset(
		[]*tensor.Tensor{tensor.MustFromSlice(tokens, tensor.Shape{n, seqLen})},
		tensor.MustFromSlice(labels, tensor.Shape{n, 1}),
	)
	require.NoError(t, err)
	return ds
}

func adam(t *testing.T, lr float64) optim.Optimizer {
	t.Helper()
	opt, err := optim.NewAdam(optim.AdamConfig{LR: lr})
	require.NoError(t, err)
	return opt
}

func TestTrainRecommenderReducesLoss(t *testing.T) {
	model := recommender(t, 1)
	ds := ratings(t)

	history, err := train.Train(model, ds, nil, train.Config{
		Epochs:    50,
		BatchSize: 4,
		Loss:      nn.NewMSELoss(),
		Optimizer: adam(t, 0.01),
		Seed:      7,
	})
	require.NoError(t, err)
	require.Len(t, history.Epochs, 50)

	losses := history.Losses()
	assert.Less(t, losses[49], 0.5*losses[0], "loss should at least halve: %v", losses)
	for _, e := range history.Epochs {
		assert.False(t, e.HasValidation)
		assert.Empty(t, e.Warnings)
	}
}

func TestTrainClassifierReachesAccuracy(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ds := sequences(t, 40, rng)

	model, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize:    50,
		SeqLen:       10,
		EmbeddingDim: 4,
		KernelSize:   3,
		Filters:      8,
	}, rng)
	require.NoError(t, err)
	require.Contains(t, ds.Inputs[0].Data(), 0.0, "fixture is padded")
	padBefore := model.StateDict()["embedding.weight"].Row(0)

	_, err = train.Train(model, ds, nil, train.Config{
		Epochs:    20,
		BatchSize: 8,
		Loss:      nn.NewBCELoss(),
		Optimizer: adam(t, 0.01),
		RNG:       rng,
	})
	require.NoError(t, err)

	metrics, err := train.Evaluate(model, ds, nn.NewBCELoss(), 16)
	require.NoError(t, err)
	assert.True(t, metrics.HasAccuracy)
	assert.GreaterOrEqual(t, metrics.Accuracy, 0.9)
	assert.Equal(t, 40, metrics.Examples)

	// Id 0 is an ordinary row: padding positions feed the convolution and train it.
	assert.NotEqual(t, padBefore, model.StateDict()["embedding.weight"].Row(0))
}

// recordingLoss wraps a loss and records every batch it sees.
type recordingLoss struct {
	nn.Loss
	sizes  []int
	values []float64
}

func (r *recordingLoss) Compute(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	v, g, err := r.Loss.Compute(pred, target)
	r.sizes = append(r.sizes, pred.Dim(0))
	r.values = append(r.values, v)
	return v, g, err
}

func TestTrainRaggedBatchWeighting(t *testing.T) {
	const n = 100
	rng := rand.New(rand.NewSource(11))
	users := make([]float64, n)
	items := make([]float64, n)
	targets := make([]float64, n)
	for i := range targets {
		users[i] = float64(rng.Intn(5))
		items[i] = float64(rng.Intn(4))
		targets[i] = float64(1 + rng.Intn(5))
	}
	ds, err := train.NewDataset(
		[]*tensor.Tensor{
			tensor.MustFromSlice(users, tensor.Shape{n, 1}),
			tensor.MustFromSlice(items, tensor.Shape{n, 1}),
		},
		tensor.MustFromSlice(targets, tensor.Shape{n, 1}),
	)
	require.NoError(t, err)

	loss := &recordingLoss{Loss: nn.NewMSELoss()}
	history, err := train.Train(recommender(t, 2), ds, nil, train.Config{
		Epochs:    1,
		BatchSize: 32,
		Loss:      loss,
		Seed:      1,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{32, 32, 32, 4}, loss.sizes)

	var want float64
	for i, v := range loss.values {
		want += v * float64(loss.sizes[i])
	}
	want /= n
	assert.InDelta(t, want, history.Epochs[0].Loss, 1e-12)
}

func TestTrainSeedReproducible(t *testing.T) {
	run := func() []float64 {
		history, err := train.Train(recommender(t, 5), ratings(t), nil, train.Config{
			Epochs:    5,
			BatchSize: 3,
			Loss:      nn.NewMSELoss(),
			Optimizer: adam(t, 0.01),
			Seed:      42,
		})
		require.NoError(t, err)
		return history.Losses()
	}
	assert.Equal(t, run(), run())
}

func TestTrainWithValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	trainSet, valSet, err := train.Split(sequences(t, 40, rng), 0.25, rng)
	require.NoError(t, err)
	assert.Equal(t, 30, trainSet.Len())
	assert.Equal(t, 10, valSet.Len())

	model, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize:    50,
		SeqLen:       10,
		EmbeddingDim: 4,
		KernelSize:   3,
		Filters:      4,
		HiddenUnits:  []int{4},
		Dropout:      0.2,
	}, rng)
	require.NoError(t, err)

	var seen []int
	history, err := train.Train(model, trainSet, valSet, train.Config{
		Epochs:    3,
		BatchSize: 8,
		Loss:      nn.NewBCELoss(),
		RNG:       rng,
		OnEpoch: func(m train.EpochMetrics) error {
			seen = append(seen, m.Epoch)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	for _, e := range history.Epochs {
		assert.True(t, e.HasValidation)
		assert.GreaterOrEqual(t, e.ValAccuracy, 0.0)
		assert.LessOrEqual(t, e.ValAccuracy, 1.0)
		assert.Greater(t, e.ValLoss, 0.0)
	}
	assert.Equal(t, 3, history.Last().Epoch)
}

func nanTargets(t *testing.T) *train.Dataset {
	t.Helper()
	ds := ratings(t)
	ds.Targets.Set(math.NaN(), 0, 0)
	return ds
}

func TestTrainWarningsRecorded(t *testing.T) {
	history, err := train.Train(recommender(t, 1), nanTargets(t), nil, train.Config{
		Epochs:    1,
		BatchSize: 20,
		Loss:      nn.NewMSELoss(),
		Seed:      1,
	})
	require.NoError(t, err)

	warnings := history.Epochs[0].Warnings
	require.NotEmpty(t, warnings)
	assert.Equal(t, train.QuantityLoss, warnings[0].Quantity)
	assert.Equal(t, 1, warnings[0].Epoch)
	assert.Equal(t, 0, warnings[0].Batch)
	assert.True(t, math.IsNaN(warnings[0].Value))

	var params []string
	for _, w := range warnings[1:] {
		assert.Equal(t, train.QuantityGradient, w.Quantity)
		params = append(params, w.Parameter)
	}
	assert.Contains(t, params, "output.bias")
	assert.Contains(t, warnings[0].String(), "non-finite loss")
}

func TestTrainWarningHookAborts(t *testing.T) {
	errStop := errors.New("stop")
	var got []train.NumericInstabilityWarning

	_, err := train.Train(recommender(t, 1), nanTargets(t), nil, train.Config{
		Epochs:    3,
		BatchSize: 20,
		Loss:      nn.NewMSELoss(),
		Seed:      1,
		OnWarning: func(w train.NumericInstabilityWarning) error {
			got = append(got, w)
			return errStop
		},
	})
	require.ErrorIs(t, err, errStop)
	require.Len(t, got, 1)
	assert.Equal(t, train.QuantityLoss, got[0].Quantity)
}

func TestTrainContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	history, err := train.TrainContext(ctx, recommender(t, 1), ratings(t), nil, train.Config{
		Epochs:    10,
		BatchSize: 4,
		Loss:      nn.NewMSELoss(),
		OnEpoch: func(m train.EpochMetrics) error {
			if m.Epoch == 2 {
				cancel()
			}
			return nil
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, history.Epochs, 2)
}

func TestTrainConfigErrors(t *testing.T) {
	model := recommender(t, 1)
	ds := ratings(t)

	tests := []struct {
		name  string
		cfg   train.Config
		field string
	}{
		{"no epochs", train.Config{Loss: nn.NewMSELoss()}, "epochs"},
		{"negative batch", train.Config{Epochs: 1, BatchSize: -1, Loss: nn.NewMSELoss()}, "batch_size"},
		{"no loss", train.Config{Epochs: 1}, "loss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := train.Train(model, ds, nil, tt.cfg)
			require.ErrorIs(t, err, nn.ErrConfig)
			var ce *nn.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestTrainOptimizerResetPerRun(t *testing.T) {
	opt, err := optim.NewAdam(optim.AdamConfig{LR: 0.01})
	require.NoError(t, err)

	cfg := train.Config{Epochs: 1, BatchSize: 5, Loss: nn.NewMSELoss(), Optimizer: opt, Seed: 1}
	_, err = train.Train(recommender(t, 1), ratings(t), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, opt.GetTimestep())

	_, err = train.Train(recommender(t, 1), ratings(t), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, opt.GetTimestep())
}

func TestPredictEvalModeDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ds := sequences(t, 12, rng)
	model, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize:    50,
		SeqLen:       10,
		EmbeddingDim: 4,
		KernelSize:   3,
		Filters:      4,
		Dropout:      0.5,
	}, rng)
	require.NoError(t, err)

	a, err := train.Predict(model, ds.Inputs, 5)
	require.NoError(t, err)
	b, err := train.Predict(model, ds.Inputs, 0)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{12, 1}, a.Shape())
	assert.InDeltaSlice(t, a.Data(), b.Data(), 1e-12)
	for _, p := range a.Data() {
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
}

func TestPredictRangeError(t *testing.T) {
	users := tensor.MustFromSlice([]float64{0, 5}, tensor.Shape{2, 1})
	items := tensor.MustFromSlice([]float64{0, 1}, tensor.Shape{2, 1})

	_, err := train.Predict(recommender(t, 1), []*tensor.Tensor{users, items}, 0)
	require.ErrorIs(t, err, nn.ErrRange)
	var re *nn.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 5, re.ID)
}

func TestEvaluateDoesNotTouchParameters(t *testing.T) {
	model := recommender(t, 1)
	before := model.StateDict()

	m, err := train.Evaluate(model, ratings(t), nn.NewMSELoss(), 7)
	require.NoError(t, err)
	assert.False(t, m.HasAccuracy)
	assert.Greater(t, m.Loss, 0.0)

	for name, p := range model.StateDict() {
		assert.Equal(t, before[name].Data(), p.Data(), name)
	}
	for _, p := range model.Parameters() {
		if p.IsSparse() {
			assert.Zero(t, p.Sparse().Len(), p.Name())
		}
	}
}

func TestDatasetAndSplit(t *testing.T) {
	_, err := train.NewDataset(
		[]*tensor.Tensor{tensor.Zeros(tensor.Shape{3, 1})},
		tensor.Zeros(tensor.Shape{4, 1}),
	)
	require.ErrorIs(t, err, tensor.ErrShape)

	ds := ratings(t)
	batchIn, batchT, err := ds.Batch([]int{3, 0})
	require.NoError(t, err)
	assert.Equal(t, ds.Inputs[1].At(3, 0), batchIn[1].At(0, 0))
	assert.Equal(t, ds.Targets.At(0, 0), batchT.At(1, 0))

	rng := rand.New(rand.NewSource(1))
	trainSet, valSet, err := train.Split(ds, 0.2, rng)
	require.NoError(t, err)
	assert.Equal(t, 16, trainSet.Len())
	assert.Equal(t, 4, valSet.Len())

	_, _, err = train.Split(ds, 0.01, rng)
	require.Error(t, err)
	_, _, err = train.Split(ds, 1, rng)
	require.Error(t, err)
}
