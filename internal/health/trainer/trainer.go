package trainer

// Package trainer is the offline model training pipeline: load a labeled
// vitals dataset, fit a risk classifier and an outlier detector, and
// persist both as the model bundle the serving engine loads at startup.
// It runs out of process, never inline with a request, and unlike the
// serving path it is fatal on error: a broken run must not silently
// produce a corrupt bundle.

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/health/ml"
	"github.com/villagedev/health-ai/internal/health/modelstore"
)

// splitSeed keeps train/validation splits reproducible.
const splitSeed = 42

// minNormalCount is the smallest "normal"-labeled subset the detector will
// be fitted on; below it the full set is used instead.
const minNormalCount = 50

// validationFraction of rows is held out for accuracy reporting.
const validationFraction = 0.2

// Summary reports what a training run produced.
type Summary struct {
	Features           []string
	Rows               int
	TrainRows          int
	ValidationRows     int
	NormalRows         int
	DetectorOnFullSet  bool
	ValidationAccuracy float64
}

// Trainer fits and persists a model bundle.
type Trainer struct {
	store modelstore.Store
	log   *zap.Logger
}

// New creates a trainer that writes bundles into store.
func New(store modelstore.Store, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{store: store, log: log}
}

// Run trains a classifier and an outlier detector on the dataset and
// persists both artifacts. Any error is fatal to the run.
func (t *Trainer) Run(ds *Dataset) (*Summary, error) {
	trainX, trainY, valX, valY := split(ds.X, ds.Labels)

	t.log.Info("training classifier",
		zap.Int("train_rows", len(trainX)),
		zap.Int("validation_rows", len(valX)))

	clf, err := ml.TrainLogistic(trainX, trainY, ml.DefaultTrainConfig())
	if err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}
	accuracy := clf.Accuracy(valX, valY)
	t.log.Info("classifier validation", zap.Float64("accuracy", accuracy))

	// Fit the detector on presumed-normal rows so its notion of "typical"
	// is a healthy population, not the whole labeled mix.
	normal := make([][]float64, 0, len(ds.X))
	for i, row := range ds.X {
		if ds.Labels[i] == 0 {
			normal = append(normal, row)
		}
	}
	onFullSet := false
	if len(normal) < minNormalCount {
		t.log.Warn("normal class under-represented, fitting detector on full set",
			zap.Int("normal_rows", len(normal)), zap.Int("min", minNormalCount))
		normal = ds.X
		onFullSet = true
	}
	det := ml.NewIsolationForest(ml.DefaultNumTrees, ml.DefaultSubSampleSize, ml.DefaultMaxDepth, splitSeed)
	if err := det.Fit(normal); err != nil {
		return nil, fmt.Errorf("fit detector: %w", err)
	}

	meta := modelstore.Metadata{
		Features:     ds.Set.Names(),
		FeatureCount: ds.Set.Len(),
		SampleCount:  len(ds.X),
		TrainedAt:    time.Now().UTC(),
	}
	clfMeta := meta
	clfMeta.ValidationAccuracy = accuracy

	if err := t.store.SaveClassifier(clf, clfMeta); err != nil {
		return nil, fmt.Errorf("persist classifier: %w", err)
	}
	if err := t.store.SaveDetector(det, meta); err != nil {
		return nil, fmt.Errorf("persist detector: %w", err)
	}
	t.log.Info("model bundle persisted", zap.String("dir", t.store.Dir()))

	return &Summary{
		Features:           ds.Set.Names(),
		Rows:               len(ds.X),
		TrainRows:          len(trainX),
		ValidationRows:     len(valX),
		NormalRows:         len(normal),
		DetectorOnFullSet:  onFullSet,
		ValidationAccuracy: accuracy,
	}, nil
}

// split shuffles deterministically and holds out the validation fraction.
func split(x [][]float64, y []int) (trainX [][]float64, trainY []int, valX [][]float64, valY []int) {
	rng := rand.New(rand.NewSource(splitSeed))
	order := rng.Perm(len(x))

	nVal := int(float64(len(x)) * validationFraction)
	if nVal == 0 && len(x) > 1 {
		nVal = 1
	}
	for i, idx := range order {
		if i < nVal {
			valX = append(valX, x[idx])
			valY = append(valY, y[idx])
		} else {
			trainX = append(trainX, x[idx])
			trainY = append(trainY, y[idx])
		}
	}
	return trainX, trainY, valX, valY
}
