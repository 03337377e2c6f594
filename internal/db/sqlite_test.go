package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePrediction(severity int) *PredictionRecord {
	return &PredictionRecord{
		ID:         uuid.NewString(),
		Likelihood: 0.91,
		Anomaly:    0.55,
		Severity:   severity,
		Source:     "heuristic",
		Factors:    []string{"low_spo2", "fever"},
		Features:   map[string]float64{"hr": 120, "spo2": 85},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestStore_PredictionRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rec := samplePrediction(88)
	require.NoError(t, s.AppendPrediction(ctx, rec))

	got, err := s.ListPredictions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.Factors, got[0].Factors)
	assert.Equal(t, rec.Features, got[0].Features)
	assert.Equal(t, 88, got[0].Severity)
}

func TestStore_ListOrderAndLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := samplePrediction(50 + i)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.AppendPrediction(ctx, rec))
	}

	got, err := s.ListPredictions(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first.
	assert.Equal(t, 54, got[0].Severity)
	assert.Equal(t, 52, got[2].Severity)
}

func TestStore_AlertRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	pred := samplePrediction(92)
	require.NoError(t, s.AppendPrediction(ctx, pred))

	alert := &AlertRecord{
		ID:           uuid.NewString(),
		PredictionID: pred.ID,
		Severity:     pred.Severity,
		Factors:      pred.Factors,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.AppendAlert(ctx, alert))

	got, err := s.ListAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pred.ID, got[0].PredictionID)
	assert.Equal(t, 92, got[0].Severity)
}

func TestStore_Ping(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
