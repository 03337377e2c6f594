package engine

import (
	"testing"

	"github.com/villagedev/health-ai/internal/health/baseline"
	"github.com/villagedev/health-ai/internal/health/feature"
)

func buildVec(payload map[string]any) feature.Vector {
	return feature.Build(payload, feature.SetCanonical)
}

func TestHeuristic_Bounds(t *testing.T) {
	stats := baseline.New(feature.SetCanonical)
	extremes := []map[string]any{
		{},
		{"spo2": 0, "temp_c": 45, "hr": 300, "bp_sys": 300, "bp_dia": 200, "rr": 60},
		{"spo2": 100, "temp_c": 30, "hr": 20, "bp_sys": 60},
	}
	for i, p := range extremes {
		got := heuristicProbability(stats, buildVec(p))
		if got < 0 || got > 1 {
			t.Errorf("payload %d: probability %v out of [0,1]", i, got)
		}
	}
}

func TestHeuristic_BitIdentical(t *testing.T) {
	stats := baseline.New(feature.SetCanonical)
	v := buildVec(map[string]any{"hr": 101.5, "spo2": 93.2, "age": 77})
	a := heuristicProbability(stats, v)
	b := heuristicProbability(stats, v)
	if a != b {
		t.Errorf("heuristic is not deterministic: %v vs %v", a, b)
	}
}

func TestHeuristic_HardFlagBoosts(t *testing.T) {
	stats := baseline.New(feature.SetCanonical)

	below := heuristicProbability(stats, buildVec(map[string]any{"spo2": 92.0}))
	flagged := heuristicProbability(stats, buildVec(map[string]any{"spo2": 91.99}))
	if flagged <= below {
		t.Errorf("spo2 hard flag: p(91.99)=%v should exceed p(92.0)=%v", flagged, below)
	}

	warm := heuristicProbability(stats, buildVec(map[string]any{"temp_c": 38.99}))
	febrile := heuristicProbability(stats, buildVec(map[string]any{"temp_c": 39.0}))
	if febrile <= warm {
		t.Errorf("temp hard flag: p(39.0)=%v should exceed p(38.99)=%v", febrile, warm)
	}
}

func TestHeuristic_DirectionOfWeights(t *testing.T) {
	stats := baseline.New(feature.SetCanonical)

	base := heuristicProbability(stats, buildVec(map[string]any{}))
	tachy := heuristicProbability(stats, buildVec(map[string]any{"hr": 130}))
	if tachy <= base {
		t.Errorf("elevated heart rate should raise risk: %v <= %v", tachy, base)
	}

	highSat := heuristicProbability(stats, buildVec(map[string]any{"spo2": 99.5}))
	lowSat := heuristicProbability(stats, buildVec(map[string]any{"spo2": 94.0}))
	if lowSat <= highSat {
		t.Errorf("lower saturation should raise risk: %v <= %v", lowSat, highSat)
	}
}
