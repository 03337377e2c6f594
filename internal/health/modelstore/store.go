package modelstore

// Package modelstore persists and loads the trained model bundle: two
// independent JSON artifacts (classifier, outlier detector) in a well-known
// directory. The trainer is the only writer; the scoring engine only reads,
// once, at initialization.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/villagedev/health-ai/internal/health/ml"
)

// Artifact file names inside the model directory.
const (
	ClassifierFile = "healthcare_classifier.json"
	DetectorFile   = "healthcare_detector.json"
)

// ErrNotFound indicates the artifact does not exist. Callers treat this as
// "no trained model", not as a failure.
var ErrNotFound = errors.New("modelstore: artifact not found")

// Metadata describes the bundle an artifact belongs to.
type Metadata struct {
	Features     []string  `json:"features"`
	FeatureCount int       `json:"feature_count"`
	SampleCount  int       `json:"sample_count"`
	TrainedAt    time.Time `json:"trained_at"`
	// ValidationAccuracy is recorded for the classifier only.
	ValidationAccuracy float64 `json:"validation_accuracy,omitempty"`
}

type classifierArtifact struct {
	Metadata Metadata               `json:"metadata"`
	Model    *ml.LogisticClassifier `json:"model"`
}

type detectorArtifact struct {
	Metadata Metadata            `json:"metadata"`
	Model    *ml.IsolationForest `json:"model"`
}

// Store reads and writes model artifacts under a single directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir. The directory is created lazily on
// first save, so a read-only deployment without models never creates it.
func New(dir string) Store { return Store{dir: dir} }

// Dir returns the store's root directory.
func (s Store) Dir() string { return s.dir }

// SaveClassifier persists the classifier artifact atomically.
func (s Store) SaveClassifier(clf *ml.LogisticClassifier, meta Metadata) error {
	return s.write(ClassifierFile, classifierArtifact{Metadata: meta, Model: clf})
}

// SaveDetector persists the detector artifact atomically.
func (s Store) SaveDetector(det *ml.IsolationForest, meta Metadata) error {
	return s.write(DetectorFile, detectorArtifact{Metadata: meta, Model: det})
}

// LoadClassifier reads and validates the classifier artifact.
func (s Store) LoadClassifier() (*ml.LogisticClassifier, Metadata, error) {
	var a classifierArtifact
	if err := s.read(ClassifierFile, &a); err != nil {
		return nil, Metadata{}, err
	}
	if a.Model == nil || len(a.Model.Weights) == 0 {
		return nil, Metadata{}, fmt.Errorf("modelstore: classifier artifact has no model")
	}
	if a.Metadata.FeatureCount != len(a.Model.Weights) {
		return nil, Metadata{}, fmt.Errorf("modelstore: classifier width %d does not match metadata %d",
			len(a.Model.Weights), a.Metadata.FeatureCount)
	}
	return a.Model, a.Metadata, nil
}

// LoadDetector reads and validates the detector artifact.
func (s Store) LoadDetector() (*ml.IsolationForest, Metadata, error) {
	var a detectorArtifact
	if err := s.read(DetectorFile, &a); err != nil {
		return nil, Metadata{}, err
	}
	if a.Model == nil || len(a.Model.Trees) == 0 {
		return nil, Metadata{}, fmt.Errorf("modelstore: detector artifact has no model")
	}
	if a.Metadata.FeatureCount != a.Model.NumFeatures {
		return nil, Metadata{}, fmt.Errorf("modelstore: detector width %d does not match metadata %d",
			a.Model.NumFeatures, a.Metadata.FeatureCount)
	}
	return a.Model, a.Metadata, nil
}

func (s Store) write(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("modelstore: create dir: %w", err)
	}
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("modelstore: encode %s: %w", name, err)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("modelstore: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("modelstore: publish %s: %w", name, err)
	}
	return nil
}

func (s Store) read(name string, v any) error {
	blob, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("modelstore: read %s: %w", name, err)
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return fmt.Errorf("modelstore: decode %s: %w", name, err)
	}
	return nil
}
