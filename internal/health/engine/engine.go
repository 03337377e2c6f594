package engine

// Package engine implements the health risk scoring pipeline: payload →
// feature vector → {trained classifier | heuristic} + outlier detector →
// severity and contributing factors.
//
// Responsibilities:
//   - Model lifecycle: best-effort load of the trained bundle at
//     initialization, with silent fallback to the heuristic probability
//     model and a baseline-fitted outlier detector
//   - Single-sample and order-preserving batch prediction
//   - Model status reporting (trained vs fallback per component)
//
// After Init the engine is immutable and safe for arbitrary concurrent
// use; scoring does no I/O and never fails a well-formed request.

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/health/baseline"
	"github.com/villagedev/health-ai/internal/health/feature"
	"github.com/villagedev/health-ai/internal/health/ml"
	"github.com/villagedev/health-ai/internal/health/modelstore"
	"github.com/villagedev/health-ai/internal/metrics"
)

// Classifier is the capability the engine requires from a trained
// probability source.
type Classifier interface {
	PredictProba(sample []float64) (float64, error)
}

// LikelihoodSource identifies which probability source produced a result,
// so fallbacks are observable rather than hidden.
type LikelihoodSource string

const (
	SourceTrainedModel LikelihoodSource = "trained_model"
	SourceHeuristic    LikelihoodSource = "heuristic"
)

// Result is a single prediction.
type Result struct {
	Likelihood       float64            `json:"likelihood"`
	Anomaly          float64            `json:"anomaly"`
	Severity         int                `json:"severity"`
	Factors          []string           `json:"factors"`
	Features         map[string]float64 `json:"features"`
	LikelihoodSource LikelihoodSource   `json:"likelihood_source"`
}

// AlertEligible reports whether the result qualifies for external alert
// dispatch.
func (r Result) AlertEligible() bool { return r.Severity >= AlertSeverityThreshold }

// Status reports which components are backed by trained models.
type Status struct {
	ClassifierLoaded bool `json:"classifier_loaded"`
	AnomalyLoaded    bool `json:"anomaly_loaded"`
	FeatureCount     int  `json:"feature_count"`
}

// Engine is the dependency-injected scoring service. Construct once at
// process start with New, call Init, and share the handle freely.
type Engine struct {
	store modelstore.Store
	log   *zap.Logger

	initOnce sync.Once
	initErr  error

	// Immutable after Init.
	set        feature.Set
	stats      baseline.Stats
	classifier Classifier
	detector   OutlierDetector
	clfLoaded  bool
	detLoaded  bool
}

// New creates an uninitialized engine backed by the given model store.
func New(store modelstore.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// Init performs the once-per-process model lifecycle transition:
// Uninitialized → TrainedLoaded or BaselineFallback. It is idempotent and
// safe under concurrent first access; racing callers converge on a single
// fit. Missing or corrupt bundles are not errors — they select fallbacks.
func (e *Engine) Init() error {
	e.initOnce.Do(func() { e.initErr = e.initialize() })
	return e.initErr
}

func (e *Engine) initialize() error {
	e.set = feature.SetCanonical

	clf, clfMeta, err := e.store.LoadClassifier()
	switch {
	case err == nil:
		if set, ok := setForWidth(clfMeta.FeatureCount); ok {
			e.set = set
			e.classifier = clf
			e.clfLoaded = true
			e.log.Info("trained classifier loaded",
				zap.Int("features", clfMeta.FeatureCount),
				zap.Time("trained_at", clfMeta.TrainedAt))
		} else {
			e.log.Warn("trained classifier has unsupported feature width, using heuristic",
				zap.Int("features", clfMeta.FeatureCount))
		}
	case errors.Is(err, modelstore.ErrNotFound):
		e.log.Info("no trained classifier, heuristic probability model active")
	default:
		e.log.Warn("classifier load failed, heuristic probability model active", zap.Error(err))
	}

	e.stats = baseline.New(e.set)

	det, detMeta, err := e.store.LoadDetector()
	switch {
	case err == nil && detMeta.FeatureCount == e.set.Len():
		e.detector = det
		e.detLoaded = true
		e.log.Info("trained outlier detector loaded",
			zap.Int("features", detMeta.FeatureCount),
			zap.Time("trained_at", detMeta.TrainedAt))
	case err == nil:
		e.log.Warn("trained detector feature width mismatch, fitting baseline detector",
			zap.Int("detector_features", detMeta.FeatureCount),
			zap.Int("engine_features", e.set.Len()))
	case errors.Is(err, modelstore.ErrNotFound):
		e.log.Info("no trained outlier detector, fitting baseline detector")
	default:
		e.log.Warn("detector load failed, fitting baseline detector", zap.Error(err))
	}

	if e.detector == nil {
		forest := ml.NewIsolationForest(
			ml.DefaultNumTrees, ml.DefaultSubSampleSize, ml.DefaultMaxDepth, baseline.Seed)
		if err := forest.Fit(baseline.Cohort(e.set, baseline.Seed)); err != nil {
			// Cannot happen with a non-empty cohort, but the anomaly path
			// must never be left unavailable.
			return err
		}
		e.detector = forest
	}
	return nil
}

// setForWidth maps a trained feature count to a known feature set.
func setForWidth(n int) (feature.Set, bool) {
	switch n {
	case feature.SetCanonical.Len():
		return feature.SetCanonical, true
	case feature.SetExtended.Len():
		return feature.SetExtended, true
	}
	return feature.SetCanonical, false
}

// Predict scores a single payload. It never fails: malformed fields are
// defaulted and a classifier failure degrades to the heuristic for this
// request only.
func (e *Engine) Predict(payload map[string]any) Result {
	if err := e.Init(); err != nil {
		// Init cannot fail today, but a future detector family might; the
		// contract is best-effort, so score with whatever is available.
		e.log.Error("engine init failed", zap.Error(err))
	}

	v := feature.Build(payload, e.set)

	prob, source := e.probability(v)
	anom := e.anomalyDegree(v.Values)
	sev := severity(prob, anom)

	return Result{
		Likelihood:       prob,
		Anomaly:          anom,
		Severity:         sev,
		Factors:          factors(v),
		Features:         v.Map(),
		LikelihoodSource: source,
	}
}

// probability picks the trained classifier when loaded, degrading to the
// heuristic per request if invoking it fails.
func (e *Engine) probability(v feature.Vector) (float64, LikelihoodSource) {
	if e.classifier != nil {
		p, err := e.classifier.PredictProba(v.Values)
		if err == nil {
			return clamp01(p), SourceTrainedModel
		}
		metrics.ClassifierFallbacks.Inc()
		e.log.Warn("classifier prediction failed, falling back to heuristic", zap.Error(err))
	}
	return heuristicProbability(e.stats, v), SourceHeuristic
}

// PredictBatch scores payloads independently, preserving input order. One
// malformed item cannot affect another's result.
func (e *Engine) PredictBatch(payloads []map[string]any) []Result {
	results := make([]Result, len(payloads))
	for i, p := range payloads {
		results[i] = e.Predict(p)
	}
	return results
}

// Status reports whether each component runs on a trained model or its
// fallback.
func (e *Engine) Status() Status {
	if err := e.Init(); err != nil {
		e.log.Error("engine init failed", zap.Error(err))
	}
	return Status{
		ClassifierLoaded: e.clfLoaded,
		AnomalyLoaded:    e.detLoaded,
		FeatureCount:     e.set.Len(),
	}
}
