package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/villagedev/health-ai/internal/health/feature"
)

// Fatal error kinds. Training must abort loudly on either; callers can
// tell a missing file from a malformed one with errors.Is.
var (
	ErrDatasetNotFound = errors.New("trainer: dataset not found")
	ErrSchemaMismatch  = errors.New("trainer: dataset schema mismatch")
)

// labelColumn holds the risk category; any value containing "high"
// (case-insensitive) is the positive class.
const labelColumn = "Risk Category"

// requiredColumns maps dataset headers to canonical feature names.
var requiredColumns = map[string]string{
	"Heart Rate":               feature.HeartRate,
	"Systolic Blood Pressure":  feature.SystolicBP,
	"Diastolic Blood Pressure": feature.DiastolicBP,
	"Oxygen Saturation":        feature.OxygenSaturation,
	"Body Temperature":         feature.BodyTemperature,
	"Respiratory Rate":         feature.RespiratoryRate,
	"Age":                      feature.Age,
	"Gender":                   feature.Gender,
	"Weight (kg)":              feature.Weight,
}

// optionalColumns are taken verbatim when present and defaulted otherwise.
// If every extended column is present the bundle is trained on the
// extended feature set.
var optionalColumns = map[string]string{
	"medical_history_count":   feature.MedicalHistoryCount,
	"prior_events_count":      feature.PriorEventsCount,
	"env_air_quality_index":   feature.EnvAirQuality,
	"env_heat_index":          feature.EnvHeatIndex,
}

// extendedColumns must all be present to select the extended set.
var extendedColumns = []string{"prior_events_count", "env_air_quality_index", "env_heat_index"}

// Dataset is a fully-coerced labeled training set.
type Dataset struct {
	Set    feature.Set
	X      [][]float64
	Labels []int
}

// LoadCSV reads and validates a labeled vitals dataset. Missing files and
// missing required columns are distinct fatal errors.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("trainer: open dataset: %w", err)
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: empty dataset", ErrSchemaMismatch)
	}
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	var missing []string
	for col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if _, ok := colIndex[labelColumn]; !ok {
		missing = append(missing, labelColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", ErrSchemaMismatch, missing)
	}

	set := feature.SetCanonical
	if hasAll(colIndex, extendedColumns) {
		set = feature.SetExtended
	}

	ds := &Dataset{Set: set}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trainer: read dataset row: %w", err)
		}

		// Route each cell through the same coercion path the serving
		// engine uses, so training and inference agree on defaults and
		// gender mapping.
		payload := make(map[string]any, len(requiredColumns)+len(optionalColumns))
		for col, name := range requiredColumns {
			payload[name] = record[colIndex[col]]
		}
		for col, name := range optionalColumns {
			if i, ok := colIndex[col]; ok {
				payload[name] = record[i]
			}
		}
		v := feature.Build(payload, set)
		ds.X = append(ds.X, v.Values)
		ds.Labels = append(ds.Labels, parseLabel(record[colIndex[labelColumn]]))
	}

	if len(ds.X) == 0 {
		return nil, fmt.Errorf("%w: dataset has no rows", ErrSchemaMismatch)
	}
	return ds, nil
}

func parseLabel(raw string) int {
	if strings.Contains(strings.ToLower(raw), "high") {
		return 1
	}
	return 0
}

func hasAll(colIndex map[string]int, cols []string) bool {
	for _, c := range cols {
		if _, ok := colIndex[c]; !ok {
			return false
		}
	}
	return true
}
