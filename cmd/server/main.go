package main

// Package main is the entry point for the health risk scoring server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Build the scoring engine over the model directory, falling back to
//     the heuristic stack when no trained bundle is present
//   - Open the SQLite scoring-history store
//   - Wire alert delivery (websocket hub, optional Kafka sink)
//   - Serve the REST API, websocket alert feed and Prometheus metrics
//   - Implement graceful shutdown on SIGINT/SIGTERM

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/config"
	"github.com/villagedev/health-ai/internal/db"
	"github.com/villagedev/health-ai/internal/health/engine"
	"github.com/villagedev/health-ai/internal/health/modelstore"
	"github.com/villagedev/health-ai/internal/logging"
	"github.com/villagedev/health-ai/internal/notify"
	"github.com/villagedev/health-ai/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default "+config.DefaultConfigPath+")")
	flag.Parse()

	cfg, err := config.NewManager(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := db.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to open history store", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()

	eng := engine.New(modelstore.New(cfg.Models.Dir), log)

	var notifier *notify.Notifier
	var hub *notify.Hub
	if cfg.Alerts.Enabled {
		hub = notify.NewHub(log)
		sinks := []notify.Sink{hub}
		if cfg.Alerts.Kafka.Enabled {
			kafkaSink := notify.NewKafkaSink(cfg.Alerts.Kafka.Brokers, cfg.Alerts.Kafka.Topic)
			defer kafkaSink.Close()
			sinks = append(sinks, kafkaSink)
			log.Info("kafka alert sink enabled",
				zap.Strings("brokers", cfg.Alerts.Kafka.Brokers),
				zap.String("topic", cfg.Alerts.Kafka.Topic))
		}
		notifier = notify.New(log, sinks...)
	}

	srv, err := server.NewServer(cfg, log, eng, store, notifier, hub)
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}

	if err := srv.Start(); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("received shutdown signal")

	if err := srv.Stop(); err != nil {
		log.Error("error stopping server", zap.Error(err))
		os.Exit(1)
	}
}
