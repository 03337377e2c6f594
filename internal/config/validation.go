package config

import (
	"fmt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	if c.Server.RateLimitPerMin < 0 {
		errs = append(errs, &ValidationError{
			Field:   "server.rate_limit_per_min",
			Message: fmt.Sprintf("rate limit must not be negative, got %d", c.Server.RateLimitPerMin),
		})
	}

	if c.Models.Dir == "" {
		errs = append(errs, &ValidationError{
			Field:   "models.dir",
			Message: "model directory is required",
		})
	}

	if c.Database.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.path",
			Message: "database path is required (use :memory: for an ephemeral store)",
		})
	}

	if c.Alerts.Kafka.Enabled {
		if len(c.Alerts.Kafka.Brokers) == 0 {
			errs = append(errs, &ValidationError{
				Field:   "alerts.kafka.brokers",
				Message: "at least one broker is required when the kafka sink is enabled",
			})
		}
		if c.Alerts.Kafka.Topic == "" {
			errs = append(errs, &ValidationError{
				Field:   "alerts.kafka.topic",
				Message: "topic is required when the kafka sink is enabled",
			})
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown log level %q", c.Logging.Level),
		})
	}

	return errs
}
