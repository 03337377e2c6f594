package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8090
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	cfg.Server.RateLimitPerMin = 600

	// Models defaults
	cfg.Models.Dir = "/var/lib/healthai/models"

	// Database defaults
	cfg.Database.Path = "/var/lib/healthai/healthai.db"

	// Alerts defaults
	cfg.Alerts.Enabled = true
	cfg.Alerts.Kafka.Enabled = false
	cfg.Alerts.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Alerts.Kafka.Topic = "health-alerts"

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Path = "" // stderr
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 10
	cfg.Logging.MaxAgeDays = 30
	cfg.Logging.Compress = true

	return cfg
}
