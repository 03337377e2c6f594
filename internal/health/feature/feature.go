package feature

// Package feature turns loosely-typed vitals payloads into fixed-order
// numeric feature vectors.
//
// Responsibilities:
//   - Define the canonical feature ordering shared by the scoring engine,
//     the baseline cohort, and the offline trainer
//   - Coerce arbitrary scalar values (numbers, numeric strings, gender
//     strings) into finite float64 slots
//   - Substitute documented defaults for missing or malformed values,
//     recording per-slot provenance so the fallback is observable
//
// Building a vector never fails: a malformed field is absorbed into its
// default rather than aborting the whole sample.

import (
	"math"
	"strconv"
	"strings"
)

// Canonical feature names, in vector order. The order is a system-wide
// contract: the baseline cohort, the heuristic weights, the trained models
// and the persisted bundles all index features by this ordering.
const (
	HeartRate           = "hr"
	SystolicBP          = "bp_sys"
	DiastolicBP         = "bp_dia"
	OxygenSaturation    = "spo2"
	BodyTemperature     = "temp_c"
	RespiratoryRate     = "rr"
	Age                 = "age"
	Gender              = "gender"
	Weight              = "weight"
	MedicalHistoryCount = "medical_history_count"

	// Extended slots used only by the trained variant.
	PriorEventsCount = "prior_events_count"
	EnvAirQuality    = "env_air_quality_index"
	EnvHeatIndex     = "env_heat_index"
)

// canonicalNames is the 10-slot serving order.
var canonicalNames = []string{
	HeartRate,
	SystolicBP,
	DiastolicBP,
	OxygenSaturation,
	BodyTemperature,
	RespiratoryRate,
	Age,
	Gender,
	Weight,
	MedicalHistoryCount,
}

// extendedNames appends the trained-variant slots to the canonical order.
var extendedNames = append(append([]string{}, canonicalNames...),
	PriorEventsCount,
	EnvAirQuality,
	EnvHeatIndex,
)

// defaults holds the documented per-feature default values.
var defaults = map[string]float64{
	HeartRate:           80.0,
	SystolicBP:          120.0,
	DiastolicBP:         80.0,
	OxygenSaturation:    98.0,
	BodyTemperature:     36.8,
	RespiratoryRate:     16.0,
	Age:                 40.0,
	Gender:              0.0,
	Weight:              70.0,
	MedicalHistoryCount: 0.0,
	PriorEventsCount:    0.0,
	EnvAirQuality:       50.0,
	EnvHeatIndex:        28.0,
}

// SlotSource records where a slot's value came from.
type SlotSource int

const (
	// SlotDefaulted means the input was missing, null or not coercible and
	// the documented default was substituted.
	SlotDefaulted SlotSource = iota
	// SlotParsed means the input value was successfully coerced.
	SlotParsed
)

// Set identifies which feature ordering a vector was built against.
type Set int

const (
	// SetCanonical is the 10-feature serving order.
	SetCanonical Set = iota
	// SetExtended adds prior-events and environmental slots for bundles
	// trained on the extended columns.
	SetExtended
)

// Names returns the ordered feature names of the set. The returned slice
// must not be mutated.
func (s Set) Names() []string {
	if s == SetExtended {
		return extendedNames
	}
	return canonicalNames
}

// Len returns the number of slots in the set.
func (s Set) Len() int { return len(s.Names()) }

// Default returns the documented default for a feature name.
func Default(name string) float64 { return defaults[name] }

// Vector is a fully-populated, fixed-order feature vector. Values and
// Sources are parallel to Set.Names().
type Vector struct {
	Set     Set
	Values  []float64
	Sources []SlotSource
}

// Value returns the raw value of a named slot, or its default if the name
// is not part of the vector's set.
func (v Vector) Value(name string) float64 {
	for i, n := range v.Set.Names() {
		if n == name {
			return v.Values[i]
		}
	}
	return Default(name)
}

// Map returns the vector as a name→value mapping for response echoing.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.Values))
	for i, n := range v.Set.Names() {
		out[n] = v.Values[i]
	}
	return out
}

// Build produces a Vector from an arbitrary payload. Unknown keys are
// ignored; absent or malformed values fall back to defaults. Build is a
// pure function and never fails.
func Build(payload map[string]any, set Set) Vector {
	names := set.Names()
	v := Vector{
		Set:     set,
		Values:  make([]float64, len(names)),
		Sources: make([]SlotSource, len(names)),
	}
	for i, name := range names {
		raw, ok := payload[name]
		if name == Gender {
			v.Values[i], v.Sources[i] = coerceGender(raw, ok)
			continue
		}
		if !ok || raw == nil {
			v.Values[i] = defaults[name]
			continue
		}
		f, err := coerceFloat(raw)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			v.Values[i] = defaults[name]
			continue
		}
		v.Values[i] = f
		v.Sources[i] = SlotParsed
	}
	return v
}

// coerceGender maps free-form gender input to exactly 0 or 1.
// Numeric values >= 0.5 map to 1; the strings "male"/"female" map to 1/0;
// anything unrecognized maps to 0.
func coerceGender(raw any, present bool) (float64, SlotSource) {
	if !present || raw == nil {
		return defaults[Gender], SlotDefaulted
	}
	if f, err := coerceNumber(raw); err == nil {
		if f >= 0.5 {
			return 1.0, SlotParsed
		}
		return 0.0, SlotParsed
	}
	s := strings.ToLower(strings.TrimSpace(toString(raw)))
	switch s {
	case "male":
		return 1.0, SlotParsed
	case "female":
		return 0.0, SlotParsed
	}
	return 0.0, SlotDefaulted
}

// coerceFloat accepts native numeric types and numeric strings.
func coerceFloat(raw any) (float64, error) {
	if f, err := coerceNumber(raw); err == nil {
		return f, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(toString(raw)), 64)
}

// coerceNumber handles the numeric types a decoded JSON payload (or a
// direct Go caller) can carry. Strings are not numbers here.
func coerceNumber(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case bool:
		if n {
			return 1.0, nil
		}
		return 0.0, nil
	}
	return 0, strconv.ErrSyntax
}

func toString(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}
