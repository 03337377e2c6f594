package engine

import (
	"math"

	"github.com/villagedev/health-ai/internal/health/feature"
)

// Blend weights: probability dominates because it is the more calibrated
// signal; the anomaly degree is a secondary cross-check.
const (
	probabilityWeight = 0.7
	anomalyWeight     = 0.3
)

// AlertSeverityThreshold marks results eligible for external real-time
// alert dispatch. The engine only produces the qualifying result; the
// notifier decides delivery.
const AlertSeverityThreshold = 80

// Contributing factor tags.
const (
	FactorLowSpO2        = "low_spo2"
	FactorFever          = "fever"
	FactorHypertension   = "hypertension"
	FactorMedicalHistory = "medical_history"
	FactorAbnormalWeight = "abnormal_weight"
)

// severity blends probability and anomaly degree into an integer 0..100.
func severity(prob, anomaly float64) int {
	sev := 100.0 * (probabilityWeight*prob + anomalyWeight*anomaly)
	return int(math.Round(math.Max(0.0, math.Min(100.0, sev))))
}

// factors derives contributing-factor tags from the raw (unstandardized)
// feature vector. Thresholds are evaluated in a fixed order and are
// independent; a normal sample legitimately yields no factors.
func factors(v feature.Vector) []string {
	out := []string{}
	if v.Value(feature.OxygenSaturation) < 92 {
		out = append(out, FactorLowSpO2)
	}
	if v.Value(feature.BodyTemperature) >= 38.0 {
		out = append(out, FactorFever)
	}
	if v.Value(feature.SystolicBP) >= 160 {
		out = append(out, FactorHypertension)
	}
	if v.Value(feature.MedicalHistoryCount) > 2 {
		out = append(out, FactorMedicalHistory)
	}
	if w := v.Value(feature.Weight); w < 50 || w > 120 {
		out = append(out, FactorAbnormalWeight)
	}
	return out
}
