package modelstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagedev/health-ai/internal/health/ml"
)

func fittedDetector(t *testing.T) *ml.IsolationForest {
	t.Helper()
	rows := [][]float64{{1, 2}, {1.1, 2.1}, {0.9, 1.9}, {1.2, 2.0}, {0.8, 2.2}, {1.0, 2.0}}
	det := ml.NewIsolationForest(10, 4, 6, 42)
	require.NoError(t, det.Fit(rows))
	return det
}

func fittedClassifier(t *testing.T) *ml.LogisticClassifier {
	t.Helper()
	x := [][]float64{{0, 0}, {0.2, 0.1}, {3, 3}, {3.1, 2.9}}
	y := []int{0, 0, 1, 1}
	clf, err := ml.TrainLogistic(x, y, ml.DefaultTrainConfig())
	require.NoError(t, err)
	return clf
}

func TestStore_RoundTrip(t *testing.T) {
	store := New(t.TempDir())
	meta := Metadata{
		Features:     []string{"a", "b"},
		FeatureCount: 2,
		SampleCount:  6,
		TrainedAt:    time.Now().UTC(),
	}

	require.NoError(t, store.SaveDetector(fittedDetector(t), meta))
	require.NoError(t, store.SaveClassifier(fittedClassifier(t), meta))

	det, detMeta, err := store.LoadDetector()
	require.NoError(t, err)
	assert.Equal(t, 2, det.NumFeatures)
	assert.Equal(t, meta.Features, detMeta.Features)

	clf, clfMeta, err := store.LoadClassifier()
	require.NoError(t, err)
	assert.Len(t, clf.Weights, 2)
	assert.Equal(t, 2, clfMeta.FeatureCount)
}

func TestStore_MissingArtifacts(t *testing.T) {
	store := New(t.TempDir())

	_, _, err := store.LoadClassifier()
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = store.LoadDetector()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DetectorFile), []byte("{not json"), 0o644))

	_, _, err := store.LoadDetector()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound), "corrupt file must not look like a missing file")
}

func TestStore_MetadataWidthMismatch(t *testing.T) {
	store := New(t.TempDir())
	meta := Metadata{Features: []string{"a", "b", "c"}, FeatureCount: 3}

	require.NoError(t, store.SaveDetector(fittedDetector(t), meta))
	_, _, err := store.LoadDetector()
	assert.Error(t, err, "detector trained on 2 features must not load under 3-feature metadata")
}
