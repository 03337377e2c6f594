package baseline

// Package baseline builds the reference population used for feature
// normalization and for fitting the fallback outlier detector.
//
// The cohort is synthetic: a fixed-seed sample of a presumed-healthy
// population, one row per subject in canonical feature order. Given the
// same seed, every process generates an identical cohort, so fallback
// detector fits are reproducible across restarts. Replace with real
// historical data by constructing Stats from measured means/stds.

import (
	"math"
	"math/rand"

	"github.com/villagedev/health-ai/internal/health/feature"
)

// Seed and size of the synthetic cohort.
const (
	Seed       = 42
	CohortSize = 2000
)

// stdFloor keeps standard deviations strictly positive so standardization
// never divides by zero.
const stdFloor = 1e-6

// distribution describes how one feature is sampled.
type distribution struct {
	kind  string // "normal", "bernoulli", "poisson"
	mean  float64
	std   float64 // normal only
	p     float64 // bernoulli only
	rate  float64 // poisson only
}

// distributions maps each feature to its cohort distribution. Parameters
// mirror a typical healthy adult population.
var distributions = map[string]distribution{
	feature.HeartRate:           {kind: "normal", mean: 80, std: 10},
	feature.SystolicBP:          {kind: "normal", mean: 120, std: 12},
	feature.DiastolicBP:         {kind: "normal", mean: 80, std: 8},
	feature.OxygenSaturation:    {kind: "normal", mean: 98.0, std: 1.0},
	feature.BodyTemperature:     {kind: "normal", mean: 36.8, std: 0.3},
	feature.RespiratoryRate:     {kind: "normal", mean: 16, std: 3},
	feature.Age:                 {kind: "normal", mean: 40, std: 12},
	feature.Gender:              {kind: "bernoulli", p: 0.5},
	feature.Weight:              {kind: "normal", mean: 70, std: 15},
	feature.MedicalHistoryCount: {kind: "poisson", rate: 1.0},
	feature.PriorEventsCount:    {kind: "poisson", rate: 0.5},
	feature.EnvAirQuality:       {kind: "normal", mean: 50, std: 15},
	feature.EnvHeatIndex:        {kind: "normal", mean: 28, std: 4},
}

// Stats holds per-feature reference statistics. Immutable once built.
type Stats struct {
	Set   feature.Set
	Means []float64
	Stds  []float64
}

// Cohort generates the synthetic baseline population for a feature set.
// Deterministic for a given seed.
func Cohort(set feature.Set, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	names := set.Names()
	rows := make([][]float64, CohortSize)
	for i := range rows {
		row := make([]float64, len(names))
		for j, name := range names {
			row[j] = sample(rng, distributions[name])
		}
		rows[i] = row
	}
	return rows
}

// Compute derives empirical means and (floored) standard deviations from a
// cohort. The cohort must be non-empty with uniform row width.
func Compute(set feature.Set, cohort [][]float64) Stats {
	n := set.Len()
	means := make([]float64, n)
	stds := make([]float64, n)
	for _, row := range cohort {
		for j := 0; j < n; j++ {
			means[j] += row[j]
		}
	}
	for j := 0; j < n; j++ {
		means[j] /= float64(len(cohort))
	}
	for _, row := range cohort {
		for j := 0; j < n; j++ {
			d := row[j] - means[j]
			stds[j] += d * d
		}
	}
	for j := 0; j < n; j++ {
		stds[j] = math.Sqrt(stds[j]/float64(len(cohort))) + stdFloor
	}
	return Stats{Set: set, Means: means, Stds: stds}
}

// New builds the reference statistics (and discards the cohort) for a set.
func New(set feature.Set) Stats {
	return Compute(set, Cohort(set, Seed))
}

// Standardize returns (x - mean) / std for each slot.
func (s Stats) Standardize(values []float64) []float64 {
	z := make([]float64, len(values))
	for i, v := range values {
		z[i] = (v - s.Means[i]) / s.Stds[i]
	}
	return z
}

func sample(rng *rand.Rand, d distribution) float64 {
	switch d.kind {
	case "bernoulli":
		if rng.Float64() < d.p {
			return 1.0
		}
		return 0.0
	case "poisson":
		return poisson(rng, d.rate)
	default:
		return rng.NormFloat64()*d.std + d.mean
	}
}

// poisson draws via Knuth's product-of-uniforms method; fine for the small
// rates used here.
func poisson(rng *rand.Rand, rate float64) float64 {
	l := math.Exp(-rate)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return float64(k)
		}
		k++
	}
}
