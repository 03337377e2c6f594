package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultConfigPath is where the service looks for its YAML config.
const DefaultConfigPath = "/etc/healthai/config.yaml"

// Manager loads and watches configuration.
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// NewManager creates a manager reading from configPath (empty for the
// default location).
func NewManager(configPath string) *Manager {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return &Manager{
		configPath: configPath,
		watchChan:  make(chan Config, 1),
	}
}

// Load loads configuration from all sources.
func (m *Manager) Load() (*Config, error) {
	m.viper = viper.New()
	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("HEALTHAI")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// Config file is optional; defaults + env vars are enough to run.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// File not found via viper - OK, use defaults
		} else if os.IsNotExist(err) {
			// File not found via os - OK, use defaults
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	m.unmarshalConfig()

	if errs := m.config.Validate(); len(errs) > 0 {
		var msgs []string
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return m.config, nil
}

// Watch watches for configuration file changes and emits reloaded configs.
func (m *Manager) Watch() <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		m.unmarshalConfig()
		if errs := m.config.Validate(); len(errs) > 0 {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})
	return m.watchChan
}

// setDefaults sets default values in viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("server.host", defaults.Server.Host)
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	m.viper.SetDefault("server.rate_limit_per_min", defaults.Server.RateLimitPerMin)

	m.viper.SetDefault("models.dir", defaults.Models.Dir)

	m.viper.SetDefault("database.path", defaults.Database.Path)

	m.viper.SetDefault("alerts.enabled", defaults.Alerts.Enabled)
	m.viper.SetDefault("alerts.kafka.enabled", defaults.Alerts.Kafka.Enabled)
	m.viper.SetDefault("alerts.kafka.brokers", defaults.Alerts.Kafka.Brokers)
	m.viper.SetDefault("alerts.kafka.topic", defaults.Alerts.Kafka.Topic)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.path", defaults.Logging.Path)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	m.viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// unmarshalConfig unmarshals viper config into the Config struct.
func (m *Manager) unmarshalConfig() {
	cfg := &Config{}

	cfg.Server.Host = m.viper.GetString("server.host")
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")
	cfg.Server.RateLimitPerMin = m.viper.GetInt("server.rate_limit_per_min")

	cfg.Models.Dir = m.viper.GetString("models.dir")

	cfg.Database.Path = m.viper.GetString("database.path")

	cfg.Alerts.Enabled = m.viper.GetBool("alerts.enabled")
	cfg.Alerts.Kafka.Enabled = m.viper.GetBool("alerts.kafka.enabled")
	cfg.Alerts.Kafka.Brokers = m.viper.GetStringSlice("alerts.kafka.brokers")
	cfg.Alerts.Kafka.Topic = m.viper.GetString("alerts.kafka.topic")

	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Path = m.viper.GetString("logging.path")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")
	cfg.Logging.Compress = m.viper.GetBool("logging.compress")

	m.config = cfg
}
