package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/db"
	"github.com/villagedev/health-ai/internal/health/engine"
	"github.com/villagedev/health-ai/internal/metrics"
)

// PredictResponse is a scored vitals sample.
type PredictResponse struct {
	ID string `json:"id"`
	engine.Result
	Alert     bool      `json:"alert"`
	Timestamp time.Time `json:"timestamp"`
}

// PredictBatchRequest carries multiple vitals payloads to score in order.
type PredictBatchRequest struct {
	Samples []map[string]any `json:"samples"`
}

// PredictBatchResponse returns one entry per input sample, same order.
type PredictBatchResponse struct {
	Results   []PredictResponse `json:"results"`
	Count     int               `json:"count"`
	Timestamp time.Time         `json:"timestamp"`
}

// handlePredict scores a single vitals payload.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	start := time.Now()
	result := s.engine.Predict(payload)
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())

	resp := s.record(r, result, "single")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// handlePredictBatch scores every sample independently, preserving order.
func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PredictBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Samples) == 0 {
		http.Error(w, "Samples cannot be empty", http.StatusBadRequest)
		return
	}

	start := time.Now()
	results := s.engine.PredictBatch(req.Samples)
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())

	resp := PredictBatchResponse{
		Results:   make([]PredictResponse, 0, len(results)),
		Count:     len(results),
		Timestamp: time.Now().UTC(),
	}
	for _, result := range results {
		resp.Results = append(resp.Results, s.record(r, result, "batch"))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// record persists one result, dispatches an alert when eligible, and
// builds the response entry. History failures are logged, never surfaced:
// the caller still gets their score.
func (s *Server) record(r *http.Request, result engine.Result, mode string) PredictResponse {
	metrics.PredictionsTotal.WithLabelValues(string(result.LikelihoodSource), mode).Inc()
	metrics.PredictionSeverity.Observe(float64(result.Severity))

	id := uuid.NewString()
	now := time.Now().UTC()

	if s.store != nil {
		rec := &db.PredictionRecord{
			ID:         id,
			Likelihood: result.Likelihood,
			Anomaly:    result.Anomaly,
			Severity:   result.Severity,
			Source:     string(result.LikelihoodSource),
			Factors:    result.Factors,
			Features:   result.Features,
			CreatedAt:  now,
		}
		if err := s.store.AppendPrediction(r.Context(), rec); err != nil {
			s.log.Warn("failed to record prediction", zap.String("id", id), zap.Error(err))
		}
	}

	alert := result.AlertEligible()
	if alert {
		metrics.AlertsEligible.Inc()
		if s.store != nil {
			rec := &db.AlertRecord{
				ID:           uuid.NewString(),
				PredictionID: id,
				Severity:     result.Severity,
				Factors:      result.Factors,
				CreatedAt:    now,
			}
			if err := s.store.AppendAlert(r.Context(), rec); err != nil {
				s.log.Warn("failed to record alert", zap.String("prediction_id", id), zap.Error(err))
			}
		}
		if s.notifier != nil {
			s.notifier.Dispatch(id, result.Severity, result.Likelihood, result.Factors)
		}
	}

	return PredictResponse{ID: id, Result: result, Alert: alert, Timestamp: now}
}

// handleModelStatus reports which scoring components run on trained
// models versus fallbacks.
func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.engine.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"classifier_loaded": status.ClassifierLoaded,
		"anomaly_loaded":    status.AnomalyLoaded,
		"feature_count":     status.FeatureCount,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}

// handleEvents lists recorded prediction or alert history, newest first.
// Query parameters: type=predictions|alerts (default predictions),
// limit, offset.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "History store not configured", http.StatusServiceUnavailable)
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	w.Header().Set("Content-Type", "application/json")
	switch kind := r.URL.Query().Get("type"); kind {
	case "", "predictions":
		events, err := s.store.ListPredictions(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"events": events, "count": len(events)})
	case "alerts":
		events, err := s.store.ListAlerts(r.Context(), limit)
		if err != nil {
			http.Error(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"events": events, "count": len(events)})
	default:
		http.Error(w, fmt.Sprintf("Unknown event type %q", kind), http.StatusBadRequest)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// handleHealth handles liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// handleReady handles readiness checks: the engine must be initialized
// and the history store reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	ready := s.running
	s.mu.RUnlock()
	if ready && s.store != nil {
		ready = s.store.Ping(r.Context()) == nil
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not_ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// handleInfo describes the service and its model state.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.engine.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"name":              "health-ai",
		"version":           "0.1.0",
		"classifier_loaded": status.ClassifierLoaded,
		"anomaly_loaded":    status.AnomalyLoaded,
		"alerts_enabled":    s.config.Alerts.Enabled,
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}
