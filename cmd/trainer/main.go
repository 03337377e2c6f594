package main

// Package main is the offline training command. It fits a classifier and
// an outlier detector on a labeled vitals CSV and writes the model bundle
// the server loads at startup.

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/config"
	"github.com/villagedev/health-ai/internal/health/modelstore"
	"github.com/villagedev/health-ai/internal/health/trainer"
	"github.com/villagedev/health-ai/internal/logging"
)

// Exit codes distinguish the two recoverable input failures so operators
// can script around them.
const (
	exitDatasetNotFound = 2
	exitSchemaMismatch  = 3
)

func main() {
	configPath := flag.String("config", "", "path to config file (default "+config.DefaultConfigPath+")")
	datasetPath := flag.String("dataset", "", "path to the labeled vitals CSV (required)")
	modelsDir := flag.String("models-dir", "", "output directory for the model bundle (overrides config)")
	flag.Parse()

	if *datasetPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: trainer -dataset <vitals.csv> [-models-dir <dir>] [-config <path>]")
		os.Exit(1)
	}

	cfg, err := config.NewManager(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dir := cfg.Models.Dir
	if *modelsDir != "" {
		dir = *modelsDir
	}

	ds, err := trainer.LoadCSV(*datasetPath)
	if err != nil {
		log.Error("failed to load dataset", zap.String("path", *datasetPath), zap.Error(err))
		switch {
		case errors.Is(err, trainer.ErrDatasetNotFound):
			os.Exit(exitDatasetNotFound)
		case errors.Is(err, trainer.ErrSchemaMismatch):
			os.Exit(exitSchemaMismatch)
		default:
			os.Exit(1)
		}
	}

	summary, err := trainer.New(modelstore.New(dir), log).Run(ds)
	if err != nil {
		log.Fatal("training run failed", zap.Error(err))
	}

	log.Info("training complete",
		zap.Strings("features", summary.Features),
		zap.Int("rows", summary.Rows),
		zap.Int("train_rows", summary.TrainRows),
		zap.Int("validation_rows", summary.ValidationRows),
		zap.Int("normal_rows", summary.NormalRows),
		zap.Bool("detector_on_full_set", summary.DetectorOnFullSet),
		zap.Float64("validation_accuracy", summary.ValidationAccuracy),
		zap.String("models_dir", dir))
}
