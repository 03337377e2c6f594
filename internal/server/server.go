package server

// Package server exposes the scoring engine over HTTP.
//
// Responsibilities:
//   - Request/response mapping for the prediction, model-status and
//     history endpoints
//   - Recording served predictions and dispatched alerts
//   - The websocket alert feed and Prometheus metrics endpoint
//
// The server owns no scoring logic; invalid vitals never fail a request
// because the engine substitutes defaults field by field.

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/config"
	"github.com/villagedev/health-ai/internal/db"
	"github.com/villagedev/health-ai/internal/health/engine"
	"github.com/villagedev/health-ai/internal/middleware"
	"github.com/villagedev/health-ai/internal/notify"
)

// Server is the HTTP front of the health risk scoring service.
type Server struct {
	config *config.Config
	log    *zap.Logger

	engine      *engine.Engine
	store       db.Store
	notifier    *notify.Notifier
	hub         *notify.Hub
	rateLimiter *middleware.RateLimiter

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// NewServer wires the scoring engine, history store and alert notifier
// behind an HTTP server. The engine is initialized eagerly so the first
// request never pays the model-load cost.
func NewServer(cfg *config.Config, log *zap.Logger, eng *engine.Engine, store db.Store, notifier *notify.Notifier, hub *notify.Hub) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:   cfg,
		log:      log,
		engine:   eng,
		store:    store,
		notifier: notifier,
		hub:      hub,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := eng.Init(); err != nil {
		cancel()
		return nil, fmt.Errorf("initialize scoring engine: %w", err)
	}
	return srv, nil
}

// Start begins serving. It returns once the listener goroutine is up.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if s.notifier != nil {
		s.notifier.Start(s.ctx)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server error", zap.Error(err))
		}
	}()

	status := s.engine.Status()
	s.log.Info("health risk scoring service started",
		zap.Bool("classifier_loaded", status.ClassifierLoaded),
		zap.Bool("anomaly_loaded", status.AnomalyLoaded),
		zap.Int("feature_count", status.FeatureCount))
	return nil
}

// Stop shuts down the listener, drains the alert queue and waits for all
// goroutines to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping health risk scoring service")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("http shutdown error", zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.Stop()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.cancel()
	s.wg.Wait()

	s.log.Info("health risk scoring service stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/info", s.handleInfo)
	mux.Handle("/metrics", promhttp.Handler())

	predict := s.handlePredict
	predictBatch := s.handlePredictBatch
	if s.config.Server.RateLimitPerMin > 0 {
		s.rateLimiter = middleware.NewRateLimiter(s.config.Server.RateLimitPerMin)
		predict = s.rateLimiter.Middleware(predict)
		predictBatch = s.rateLimiter.Middleware(predictBatch)
	}
	mux.HandleFunc("/api/v1/health/predict", predict)
	mux.HandleFunc("/api/v1/health/predict/batch", predictBatch)
	mux.HandleFunc("/api/v1/health/model-status", s.handleModelStatus)
	mux.HandleFunc("/api/v1/health/events", s.handleEvents)

	if s.hub != nil {
		mux.HandleFunc("/ws/alerts", s.handleAlertsWS)
	}
}
