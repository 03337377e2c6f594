package engine

// OutlierDetector is the capability interface the engine requires from any
// outlier-detection model: fit against a reference population, then report
// a decision score per sample where higher means more normal. Any concrete
// algorithm can be substituted without touching the rescaling below.
type OutlierDetector interface {
	Fit(samples [][]float64) error
	DecisionScore(sample []float64) (float64, error)
}

// decisionOffset calibrates the inversion of the decision score into an
// anomaly degree. It is tuned to the isolation-forest family, whose
// decision scores sit slightly above zero for typical samples; a different
// detector family needs this re-derived against a known-normal sample set.
const decisionOffset = 0.5

// anomalyDegree converts the detector's raw decision value into a bounded
// degree: 0 means typical of the reference population, 1 highly atypical.
// A detector error (only possible on dimensionality mismatch) degrades to
// zero rather than failing the request.
func (e *Engine) anomalyDegree(x []float64) float64 {
	ds, err := e.detector.DecisionScore(x)
	if err != nil {
		e.log.Warn("outlier detector failed, reporting zero anomaly degree")
		return 0.0
	}
	return clamp01(decisionOffset - ds)
}
