package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/health/baseline"
	"github.com/villagedev/health-ai/internal/health/feature"
	"github.com/villagedev/health-ai/internal/health/ml"
	"github.com/villagedev/health-ai/internal/health/modelstore"
)

func newFallbackEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(modelstore.New(t.TempDir()), zap.NewNop())
	if err := e.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return e
}

// trainedBundle persists a small but valid canonical-width bundle.
func trainedBundle(t *testing.T, dir string) {
	t.Helper()
	store := modelstore.New(dir)
	cohort := baseline.Cohort(feature.SetCanonical, baseline.Seed)

	labels := make([]int, len(cohort))
	for i := range labels {
		labels[i] = i % 2
	}
	clf, err := ml.TrainLogistic(cohort, labels, ml.TrainConfig{Epochs: 5, LearningRate: 0.05, Seed: 1})
	if err != nil {
		t.Fatalf("train classifier: %v", err)
	}
	det := ml.NewIsolationForest(20, 64, 8, baseline.Seed)
	if err := det.Fit(cohort); err != nil {
		t.Fatalf("fit detector: %v", err)
	}

	meta := modelstore.Metadata{
		Features:     feature.SetCanonical.Names(),
		FeatureCount: feature.SetCanonical.Len(),
		SampleCount:  len(cohort),
		TrainedAt:    time.Now().UTC(),
	}
	if err := store.SaveClassifier(clf, meta); err != nil {
		t.Fatalf("save classifier: %v", err)
	}
	if err := store.SaveDetector(det, meta); err != nil {
		t.Fatalf("save detector: %v", err)
	}
}

func TestPredict_Bounds(t *testing.T) {
	e := newFallbackEngine(t)
	payloads := []map[string]any{
		{},
		{"spo2": 70, "temp_c": 41, "hr": 190, "bp_sys": 220, "medical_history_count": 9},
		{"spo2": 100, "temp_c": 35, "hr": 40},
		{"hr": "garbage", "weight": nil, "gender": "martian"},
	}
	for i, p := range payloads {
		r := e.Predict(p)
		if r.Likelihood < 0 || r.Likelihood > 1 {
			t.Errorf("payload %d: likelihood %v out of [0,1]", i, r.Likelihood)
		}
		if r.Anomaly < 0 || r.Anomaly > 1 {
			t.Errorf("payload %d: anomaly %v out of [0,1]", i, r.Anomaly)
		}
		if r.Severity < 0 || r.Severity > 100 {
			t.Errorf("payload %d: severity %d out of [0,100]", i, r.Severity)
		}
	}
}

func TestPredict_HeuristicDeterminism(t *testing.T) {
	e := newFallbackEngine(t)
	payload := map[string]any{"hr": 97.0, "spo2": 95.5, "temp_c": 37.2, "age": 61}

	a := e.Predict(payload)
	b := e.Predict(payload)
	if a.Likelihood != b.Likelihood || a.Anomaly != b.Anomaly || a.Severity != b.Severity {
		t.Errorf("identical input produced different results: %+v vs %+v", a, b)
	}
	if a.LikelihoodSource != SourceHeuristic {
		t.Errorf("fallback engine should use heuristic source, got %s", a.LikelihoodSource)
	}
}

func TestPredict_FactorThresholdsExact(t *testing.T) {
	e := newFallbackEngine(t)
	cases := []struct {
		name    string
		payload map[string]any
		factor  string
		want    bool
	}{
		{"spo2 below", map[string]any{"spo2": 91.9}, FactorLowSpO2, true},
		{"spo2 at", map[string]any{"spo2": 92.0}, FactorLowSpO2, false},
		{"temp at", map[string]any{"temp_c": 38.0}, FactorFever, true},
		{"temp below", map[string]any{"temp_c": 37.9}, FactorFever, false},
		{"bp at", map[string]any{"bp_sys": 160}, FactorHypertension, true},
		{"bp below", map[string]any{"bp_sys": 159.9}, FactorHypertension, false},
		{"history above", map[string]any{"medical_history_count": 3}, FactorMedicalHistory, true},
		{"history at", map[string]any{"medical_history_count": 2}, FactorMedicalHistory, false},
		{"weight low", map[string]any{"weight": 49.9}, FactorAbnormalWeight, true},
		{"weight low edge", map[string]any{"weight": 50.0}, FactorAbnormalWeight, false},
		{"weight high edge", map[string]any{"weight": 120.0}, FactorAbnormalWeight, false},
		{"weight high", map[string]any{"weight": 120.1}, FactorAbnormalWeight, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := e.Predict(tc.payload)
			if got := contains(r.Factors, tc.factor); got != tc.want {
				t.Errorf("factors %v: contains(%s) = %v, want %v", r.Factors, tc.factor, got, tc.want)
			}
		})
	}
}

func TestPredict_FactorsIndependent(t *testing.T) {
	e := newFallbackEngine(t)
	r := e.Predict(map[string]any{
		"spo2": 85, "temp_c": 39.5, "bp_sys": 180, "medical_history_count": 5, "weight": 40,
	})
	want := []string{FactorLowSpO2, FactorFever, FactorHypertension, FactorMedicalHistory, FactorAbnormalWeight}
	if len(r.Factors) != len(want) {
		t.Fatalf("factors = %v, want all of %v", r.Factors, want)
	}
	for i, f := range want {
		if r.Factors[i] != f {
			t.Errorf("factor order: got %v at %d, want %v", r.Factors[i], i, f)
		}
	}
}

func TestPredictBatch_EquivalentAndOrdered(t *testing.T) {
	e := newFallbackEngine(t)
	payloads := []map[string]any{
		{"spo2": 85, "temp_c": 39.5},
		{"hr": "not-a-number"},
		{},
		{"bp_sys": 170, "weight": 130},
	}
	batch := e.PredictBatch(payloads)
	if len(batch) != len(payloads) {
		t.Fatalf("batch length %d, want %d", len(batch), len(payloads))
	}
	for i, p := range payloads {
		single := e.Predict(p)
		if batch[i].Likelihood != single.Likelihood ||
			batch[i].Anomaly != single.Anomaly ||
			batch[i].Severity != single.Severity {
			t.Errorf("item %d: batch %+v != single %+v", i, batch[i], single)
		}
	}
}

func TestPredict_UnhealthyScenario(t *testing.T) {
	e := newFallbackEngine(t)

	sick := e.Predict(map[string]any{
		"spo2": 85, "temp_c": 37, "bp_sys": 130, "medical_history_count": 0, "weight": 70,
	})
	healthy := e.Predict(map[string]any{})

	if !contains(sick.Factors, FactorLowSpO2) {
		t.Errorf("factors %v should include %s", sick.Factors, FactorLowSpO2)
	}
	if sick.Severity <= healthy.Severity+20 {
		t.Errorf("severity %d should be materially higher than baseline %d", sick.Severity, healthy.Severity)
	}
	if !sick.AlertEligible() {
		t.Errorf("severity %d should be alert eligible", sick.Severity)
	}
}

func TestPredict_AllDefaultScenario(t *testing.T) {
	e := newFallbackEngine(t)
	r := e.Predict(map[string]any{})
	if len(r.Factors) != 0 {
		t.Errorf("all-default payload should have no factors, got %v", r.Factors)
	}
	if r.Severity >= 50 {
		t.Errorf("all-default severity %d should be well under 50", r.Severity)
	}
	if r.AlertEligible() {
		t.Error("all-default payload must not be alert eligible")
	}
}

func TestStatus_Fallback(t *testing.T) {
	e := newFallbackEngine(t)
	st := e.Status()
	if st.ClassifierLoaded || st.AnomalyLoaded {
		t.Errorf("no bundle on disk: status %+v should report fallbacks", st)
	}
	if st.FeatureCount != feature.SetCanonical.Len() {
		t.Errorf("feature count %d, want %d", st.FeatureCount, feature.SetCanonical.Len())
	}
}

func TestStatus_TrainedBundleLoaded(t *testing.T) {
	dir := t.TempDir()
	trainedBundle(t, dir)

	e := New(modelstore.New(dir), zap.NewNop())
	if err := e.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	st := e.Status()
	if !st.ClassifierLoaded || !st.AnomalyLoaded {
		t.Errorf("trained bundle on disk: status %+v should report loaded models", st)
	}

	r := e.Predict(map[string]any{"hr": 90})
	if r.LikelihoodSource != SourceTrainedModel {
		t.Errorf("likelihood source = %s, want %s", r.LikelihoodSource, SourceTrainedModel)
	}
}

// failingClassifier simulates a loaded model that breaks at predict time.
type failingClassifier struct{}

func (failingClassifier) PredictProba([]float64) (float64, error) {
	return 0, errors.New("boom")
}

func TestPredict_PerRequestClassifierFallback(t *testing.T) {
	e := newFallbackEngine(t)
	e.classifier = failingClassifier{}
	e.clfLoaded = true

	r := e.Predict(map[string]any{"hr": 90})
	if r.LikelihoodSource != SourceHeuristic {
		t.Errorf("broken classifier should degrade to heuristic, got %s", r.LikelihoodSource)
	}
	if r.Likelihood < 0 || r.Likelihood > 1 {
		t.Errorf("degraded likelihood %v out of range", r.Likelihood)
	}
	// Degradation is per-request: the lifecycle state still reports the
	// classifier as loaded.
	if !e.Status().ClassifierLoaded {
		t.Error("per-request fallback must not flip lifecycle state")
	}
}

func TestInit_ConcurrentFirstAccess(t *testing.T) {
	e := New(modelstore.New(t.TempDir()), zap.NewNop())

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Predict(map[string]any{"spo2": 95})
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i].Likelihood != results[0].Likelihood ||
			results[i].Anomaly != results[0].Anomaly ||
			results[i].Severity != results[0].Severity {
			t.Errorf("concurrent first predictions diverged: %+v vs %+v", results[i], results[0])
		}
	}
}

func TestInit_CorruptBundleFallsBack(t *testing.T) {
	dir := t.TempDir()
	store := modelstore.New(dir)
	// Garbage where the artifacts should be.
	if err := os.WriteFile(filepath.Join(dir, modelstore.ClassifierFile), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, modelstore.DetectorFile), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := New(store, zap.NewNop())
	if err := e.Init(); err != nil {
		t.Fatalf("init must swallow bad bundles, got %v", err)
	}
	st := e.Status()
	if st.ClassifierLoaded || st.AnomalyLoaded {
		t.Errorf("corrupt/missing bundle should fall back, status %+v", st)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
