package ml

// Package ml holds the small, dependency-free model implementations used by
// the risk engine: an Isolation Forest outlier detector and a logistic
// regression classifier. Both serialize to JSON so the offline trainer can
// persist them and the engine can load them at startup.

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrNotFitted is returned when scoring is attempted before Fit (or load).
var ErrNotFitted = errors.New("ml: model not fitted")

// Node is a single split (or leaf) of an isolation tree. Exported fields
// keep the tree JSON-serializable.
type Node struct {
	SplitFeature int     `json:"f,omitempty"`
	SplitValue   float64 `json:"v,omitempty"`
	Left         *Node   `json:"l,omitempty"`
	Right        *Node   `json:"r,omitempty"`
	Size         int     `json:"n"`
	Leaf         bool    `json:"leaf,omitempty"`
}

// IsolationForest implements the Isolation Forest algorithm for outlier
// detection. Scoring follows the standard formulation: the anomaly score of
// a sample is 2^(-E(h)/c(n)) where E(h) is its average path length across
// trees and c(n) the expected path length of an unsuccessful BST search.
type IsolationForest struct {
	Trees         []*Node `json:"trees"`
	NumTrees      int     `json:"num_trees"`
	SubSampleSize int     `json:"sub_sample_size"`
	MaxDepth      int     `json:"max_depth"`
	NumFeatures   int     `json:"num_features"`

	rng *rand.Rand
}

// Forest hyperparameters. 200 trees over 256-sample subsamples matches the
// configuration the models were originally tuned with.
const (
	DefaultNumTrees      = 200
	DefaultSubSampleSize = 256
	DefaultMaxDepth      = 10
)

// NewIsolationForest creates an unfitted forest. The seed makes fits
// reproducible; fallback fits against the synthetic baseline rely on this.
func NewIsolationForest(numTrees, subSampleSize, maxDepth int, seed int64) *IsolationForest {
	return &IsolationForest{
		Trees:         make([]*Node, 0, numTrees),
		NumTrees:      numTrees,
		SubSampleSize: subSampleSize,
		MaxDepth:      maxDepth,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Fit trains the forest on sample rows of uniform width.
func (f *IsolationForest) Fit(samples [][]float64) error {
	if len(samples) == 0 {
		return errors.New("ml: empty training set")
	}
	f.NumFeatures = len(samples[0])
	for _, row := range samples {
		if len(row) != f.NumFeatures {
			return fmt.Errorf("ml: ragged training set: row width %d != %d", len(row), f.NumFeatures)
		}
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewSource(0))
	}
	f.Trees = f.Trees[:0]
	for i := 0; i < f.NumTrees; i++ {
		sample := f.subsample(samples)
		f.Trees = append(f.Trees, f.buildTree(sample, 0))
	}
	return nil
}

// Score returns the anomaly score in (0,1); higher means more anomalous.
func (f *IsolationForest) Score(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("ml: sample width %d != model width %d", len(x), f.NumFeatures)
	}
	total := 0.0
	for _, tree := range f.Trees {
		total += pathLength(tree, x, 0)
	}
	avg := total / float64(len(f.Trees))
	c := averagePathLength(f.SubSampleSize)
	return math.Pow(2, -avg/c), nil
}

// DecisionScore converts the anomaly score to the decision-function
// convention: higher means more normal, centered so typical samples land
// slightly above zero. The risk engine's adapter inverts this around 0.5.
func (f *IsolationForest) DecisionScore(x []float64) (float64, error) {
	s, err := f.Score(x)
	if err != nil {
		return 0, err
	}
	return 0.5 - s, nil
}

// subsample takes a random subset of up to SubSampleSize rows.
func (f *IsolationForest) subsample(samples [][]float64) [][]float64 {
	size := f.SubSampleSize
	if size > len(samples) {
		size = len(samples)
	}
	shuffled := make([][]float64, len(samples))
	copy(shuffled, samples)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

// buildTree recursively isolates samples with random axis-aligned splits.
func (f *IsolationForest) buildTree(samples [][]float64, depth int) *Node {
	if len(samples) <= 1 || depth >= f.MaxDepth || allIdentical(samples) {
		return &Node{Size: len(samples), Leaf: true}
	}

	splitFeature := f.rng.Intn(f.NumFeatures)
	minVal, maxVal := featureRange(samples, splitFeature)
	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range samples {
		if row[splitFeature] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &Node{Size: len(samples), Leaf: true}
	}

	return &Node{
		SplitFeature: splitFeature,
		SplitValue:   splitValue,
		Left:         f.buildTree(left, depth+1),
		Right:        f.buildTree(right, depth+1),
		Size:         len(samples),
	}
}

func pathLength(n *Node, x []float64, depth int) float64 {
	if n.Leaf {
		return float64(depth) + averagePathLength(n.Size)
	}
	if x[n.SplitFeature] < n.SplitValue {
		return pathLength(n.Left, x, depth+1)
	}
	return pathLength(n.Right, x, depth+1)
}

// averagePathLength is c(n) = 2H(n-1) - 2(n-1)/n, the expected path length
// of an unsuccessful BST search over n items.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	h := math.Log(float64(n-1)) + 0.5772156649 // Euler-Mascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

func allIdentical(samples [][]float64) bool {
	if len(samples) <= 1 {
		return true
	}
	first := samples[0]
	for _, row := range samples[1:] {
		for j := range first {
			if math.Abs(row[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(samples [][]float64, j int) (float64, float64) {
	minVal, maxVal := samples[0][j], samples[0][j]
	for _, row := range samples {
		if row[j] < minVal {
			minVal = row[j]
		}
		if row[j] > maxVal {
			maxVal = row[j]
		}
	}
	return minVal, maxVal
}
