// Package main provides the embednet CLI.
//
// Usage:
//
//	embednet recommend -config recommend.yaml [flags]
//	embednet classify  -config classify.yaml [flags]
//	embednet version
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/born-ml/embednet/internal/config"
	"github.com/born-ml/embednet/internal/graph"
	"github.com/born-ml/embednet/internal/models"
	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/optim"
	"github.com/born-ml/embednet/internal/serialization"
	"github.com/born-ml/embednet/internal/textprep"
	"github.com/born-ml/embednet/internal/train"
)

const version = "v0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "embednet %s - embedding models for Go\n\n", version)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  recommend  Train a rating model on user,item,rating CSV")
	fmt.Fprintln(os.Stderr, "  classify   Train a text classifier on label<TAB>text lines")
	fmt.Fprintln(os.Stderr, "  version    Show version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "version":
		fmt.Printf("embednet %s\n", version)
	case config.TaskRecommend, config.TaskClassify:
		run(cmd, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func run(task string, args []string) {
	fs := flag.NewFlagSet(task, flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	dataPath := fs.String("data", "", "Override data path")
	output := fs.String("output", "", "Override parameter output path")
	epochs := fs.Int("epochs", 0, "Number of epochs")
	batchSize := fs.Int("batch-size", 0, "Batch size")
	lr := fs.Float64("lr", 0, "Learning rate")
	seed := fs.Int64("seed", 0, "PRNG seed")
	verbose := fs.Bool("v", false, "Debug logging")
	_ = fs.Parse(args) // ExitOnError

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if cfg.Task == "" {
		cfg.Task = task
	}
	if cfg.Task != task {
		log.Fatalf("config task %q does not match command %q", cfg.Task, task)
	}
	cfg.ApplyOverrides(config.Overrides{
		DataPath:  *dataPath,
		Output:    *output,
		Epochs:    *epochs,
		BatchSize: *batchSize,
		LR:        *lr,
		Seed:      *seed,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewSource(cfg.Seed))

	var (
		model *graph.Model
		ds    *train.Dataset
		loss  nn.Loss
		err   error
	)
	switch task {
	case config.TaskRecommend:
		model, ds, err = setupRecommender(cfg, rng, logger)
		loss = nn.NewMSELoss()
	case config.TaskClassify:
		model, ds, err = setupClassifier(cfg, rng, logger)
		loss = nn.NewBCELoss()
	}
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	logger.Debug("model built", "summary", model.Summary())

	trainSet, valSet := ds, (*train.Dataset)(nil)
	if cfg.Data.ValidationSplit > 0 {
		if trainSet, valSet, err = train.Split(ds, cfg.Data.ValidationSplit, rng); err != nil {
			log.Fatalf("split failed: %v", err)
		}
	}

	opt, err := newOptimizer(cfg.Train)
	if err != nil {
		log.Fatalf("optimizer: %v", err)
	}

	history, err := train.TrainContext(ctx, model, trainSet, valSet, train.Config{
		Epochs:    cfg.Train.Epochs,
		BatchSize: cfg.Train.BatchSize,
		Loss:      loss,
		Optimizer: opt,
		RNG:       rng,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if cfg.Output == "" {
		return
	}
	last := history.Last()
	meta := serialization.Meta{
		ModelType: model.Name(),
		Metadata:  map[string]string{"data": cfg.Data.Path},
		Training: &serialization.TrainingMeta{
			Epochs:    len(history.Epochs),
			BatchSize: cfg.Train.BatchSize,
			Loss:      loss.Name(),
			FinalLoss: last.Loss,
			Optimizer: cfg.Train.Optimizer,
			LR:        cfg.Train.LR,
			Seed:      cfg.Seed,
		},
	}
	if err := serialization.Save(cfg.Output, model.StateDict(), meta); err != nil {
		log.Fatalf("failed to save parameters: %v", err)
	}
	logger.Info("parameters saved", "path", cfg.Output, "params", model.NumParameters())
}

func setupRecommender(cfg *config.Config, rng *rand.Rand, logger *slog.Logger) (*graph.Model, *train.Dataset, error) {
	r, err := readRatings(cfg.Data.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("ratings loaded", "rows", r.Dataset.Len(), "users", r.NumUsers, "items", r.NumItems)

	model, err := models.NewRecommender(models.RecommenderConfig{
		NumUsers:     r.NumUsers,
		NumItems:     r.NumItems,
		EmbeddingDim: cfg.Model.EmbeddingDim,
		HiddenUnits:  cfg.Model.HiddenUnits,
		Dropout:      cfg.Model.Dropout,
	}, rng)
	if err != nil {
		return nil, nil, err
	}
	return model, r.Dataset, nil
}

func setupClassifier(cfg *config.Config, rng *rand.Rand, logger *slog.Logger) (*graph.Model, *train.Dataset, error) {
	texts, labels, err := readLabeledText(cfg.Data.Path)
	if err != nil {
		return nil, nil, err
	}

	enc, err := textprep.NewTikToken(cfg.Model.Encoding)
	if err != nil {
		return nil, nil, err
	}
	padding, err := textprep.ParseSide(cfg.Model.Padding)
	if err != nil {
		return nil, nil, err
	}

	vocab := textprep.NewVocabulary(enc, 0)
	vocab.Fit(texts)
	logger.Info("texts loaded", "rows", len(texts), "vocab", vocab.Size())

	ids, err := vocab.EncodeBatch(texts, cfg.Model.SeqLen, padding, padding)
	if err != nil {
		return nil, nil, err
	}
	ds, err := newLabeledDataset(ids, labels)
	if err != nil {
		return nil, nil, err
	}

	model, err := models.NewClassifier(models.ClassifierConfig{
		VocabSize:    vocab.Size(),
		SeqLen:       cfg.Model.SeqLen,
		EmbeddingDim: cfg.Model.EmbeddingDim,
		KernelSize:   cfg.Model.KernelSize,
		Filters:      cfg.Model.Filters,
		HiddenUnits:  cfg.Model.HiddenUnits,
		Dropout:      cfg.Model.Dropout,
	}, rng)
	if err != nil {
		return nil, nil, err
	}
	return model, ds, nil
}

func newOptimizer(t config.TrainConfig) (optim.Optimizer, error) {
	switch t.Optimizer {
	case "sgd":
		return optim.NewSGD(optim.SGDConfig{LR: t.LR, Momentum: t.Momentum})
	default:
		return optim.NewAdam(optim.AdamConfig{LR: t.LR})
	}
}
