package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scoring engine metrics for production monitoring
var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthai_predictions_total",
			Help: "Total number of risk predictions served",
		},
		[]string{"source", "mode"}, // source: trained_model/heuristic; mode: single/batch
	)

	PredictionSeverity = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthai_prediction_severity",
			Help:    "Distribution of blended severity scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
		},
	)

	ClassifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthai_classifier_fallbacks_total",
			Help: "Per-request degradations from the trained classifier to the heuristic",
		},
	)

	AlertsEligible = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthai_alerts_eligible_total",
			Help: "Prediction results at or above the alert severity threshold",
		},
	)

	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthai_alerts_published_total",
			Help: "Alert events delivered to a sink",
		},
		[]string{"sink", "status"}, // sink: websocket/kafka; status: ok/error
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthai_prediction_duration_seconds",
			Help:    "Latency of a single prediction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~0.4s
		},
	)
)
