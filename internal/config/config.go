package config

// Package config provides configuration management for the health-ai
// service.
//
// Responsibilities:
//   - Load configuration from a YAML file, environment variables, and
//     built-in defaults
//   - Validate configuration on startup
//   - Support watching the config file for changes
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (HEALTHAI_* prefix)
//   2. YAML config file (default: /etc/healthai/config.yaml)
//   3. Built-in defaults
//
// Main Configuration Sections:
//
//   1. Server
//      - host/port: HTTP listen address (default 0.0.0.0:8090)
//      - allowed_origins: origins permitted to open alert WebSockets
//      - rate_limit_per_min: per-client cap on prediction requests
//
//   2. Models
//      - dir: directory holding the persisted model bundle
//
//   3. Database
//      - path: SQLite file for prediction/alert event history
//
//   4. Alerts
//      - enabled: broadcast alert-eligible results to subscribers
//      - kafka.*: optional Kafka sink for alert events
//
//   5. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - path + rotation settings (empty path logs to stderr)

// Config contains all configuration fields.
type Config struct {
	// Server configuration
	Server struct {
		Host string
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
		// RateLimitPerMin caps prediction requests per client per minute.
		// Zero disables rate limiting.
		RateLimitPerMin int
	}

	// Models configuration
	Models struct {
		Dir string
	}

	// Database configuration
	Database struct {
		Path string
	}

	// Alerts configuration
	Alerts struct {
		Enabled bool
		Kafka   struct {
			Enabled bool
			Brokers []string
			Topic   string
		}
	}

	// Logging configuration
	Logging struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
}
