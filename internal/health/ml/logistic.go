package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// LogisticClassifier is a binary risk classifier: a linear model over
// standardized features with a sigmoid output. Standardization parameters
// learned at training time travel with the model so inference needs no
// external statistics.
type LogisticClassifier struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
}

// TrainConfig controls gradient-descent training.
type TrainConfig struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Seed         int64
}

// DefaultTrainConfig returns the settings used by the offline trainer.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{Epochs: 300, LearningRate: 0.1, L2: 1e-4, Seed: 42}
}

// TrainLogistic fits a logistic regression on rows X with binary labels y.
// Features are standardized against the training set before fitting.
func TrainLogistic(x [][]float64, y []int, cfg TrainConfig) (*LogisticClassifier, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("ml: bad training shape: %d rows, %d labels", len(x), len(y))
	}
	dim := len(x[0])
	means := make([]float64, dim)
	stds := make([]float64, dim)
	for _, row := range x {
		if len(row) != dim {
			return nil, fmt.Errorf("ml: ragged training set: row width %d != %d", len(row), dim)
		}
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(x))
	}
	for _, row := range x {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j]/float64(len(x))) + 1e-6
	}

	z := make([][]float64, len(x))
	for i, row := range x {
		zr := make([]float64, dim)
		for j, v := range row {
			zr[j] = (v - means[j]) / stds[j]
		}
		z[i] = zr
	}

	clf := &LogisticClassifier{
		Weights: make([]float64, dim),
		Means:   means,
		Stds:    stds,
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	order := rng.Perm(len(z))
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, i := range order {
			p := sigmoid(dot(clf.Weights, z[i]) + clf.Bias)
			grad := p - float64(y[i])
			for j := range clf.Weights {
				clf.Weights[j] -= cfg.LearningRate * (grad*z[i][j] + cfg.L2*clf.Weights[j])
			}
			clf.Bias -= cfg.LearningRate * grad
		}
	}
	return clf, nil
}

// PredictProba returns the positive-class probability for a raw (not yet
// standardized) feature vector. Errors on width mismatch or a non-finite
// result so the caller can degrade to its fallback scorer.
func (c *LogisticClassifier) PredictProba(x []float64) (float64, error) {
	if len(c.Weights) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != len(c.Weights) {
		return 0, fmt.Errorf("ml: sample width %d != model width %d", len(x), len(c.Weights))
	}
	s := c.Bias
	for j, v := range x {
		s += c.Weights[j] * (v - c.Means[j]) / c.Stds[j]
	}
	p := sigmoid(s)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("ml: non-finite probability")
	}
	return p, nil
}

// Accuracy scores the classifier against a labeled validation set at a 0.5
// decision threshold.
func (c *LogisticClassifier) Accuracy(x [][]float64, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i, row := range x {
		p, err := c.PredictProba(row)
		if err != nil {
			continue
		}
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func sigmoid(s float64) float64 { return 1.0 / (1.0 + math.Exp(-s)) }

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
