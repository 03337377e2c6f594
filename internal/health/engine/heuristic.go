package engine

import (
	"math"

	"github.com/villagedev/health-ai/internal/health/baseline"
	"github.com/villagedev/health-ai/internal/health/feature"
)

// Per-feature signed weights for the heuristic risk score, in canonical
// order. Positive weight means a higher value raises risk; oxygen
// saturation carries a negative weight because lower saturation is worse.
var heuristicWeights = map[string]float64{
	feature.HeartRate:           0.8,
	feature.SystolicBP:          0.6,
	feature.DiastolicBP:         0.5,
	feature.OxygenSaturation:    -0.9,
	feature.BodyTemperature:     1.2,
	feature.RespiratoryRate:     0.7,
	feature.Age:                 0.4,
	feature.Gender:              0.1,
	feature.Weight:              0.3,
	feature.MedicalHistoryCount: 0.5,
	feature.PriorEventsCount:    0.4,
	feature.EnvAirQuality:       0.3,
	feature.EnvHeatIndex:        0.3,
}

// Hard-flag thresholds and boosts. Clinically dangerous readings get a
// fixed additive increment a linear term would under-weight.
const (
	lowSpO2Threshold  = 92.0
	lowSpO2Boost      = 2.0
	highTempThreshold = 39.0
	highTempBoost     = 1.5
)

// heuristicProbability computes the closed-form risk probability: weighted
// sum of standardized features, hard-flag boosts, then a logistic squash.
// Deterministic and side-effect free; this is the default and fallback
// probability source.
func heuristicProbability(stats baseline.Stats, v feature.Vector) float64 {
	z := stats.Standardize(v.Values)
	score := 0.0
	for i, name := range v.Set.Names() {
		score += z[i] * heuristicWeights[name]
	}

	if v.Value(feature.OxygenSaturation) < lowSpO2Threshold {
		score += lowSpO2Boost
	}
	if v.Value(feature.BodyTemperature) >= highTempThreshold {
		score += highTempBoost
	}

	p := 1.0 / (1.0 + math.Exp(-score))
	return clamp01(p)
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
