package config

import (
	"fmt"
	"os"
	"strconv"

	"rctstats/internal"
	"rctstats/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Bootstrap BootstrapConfig
	Service   ServiceConfig
	Log       LogConfig
}

// BootstrapConfig holds resampling engine defaults
type BootstrapConfig struct {
	Resamples int
	Workers   int // 0 means GOMAXPROCS
	ChunkSize int
	Seed      int64
	Seeded    bool // false means every test draws a fresh seed
}

// ServiceConfig holds significance table settings
type ServiceConfig struct {
	MaxConcurrentTests int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	bootstrapConfig, err := loadBootstrapConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load bootstrap configuration")
	}
	config.Bootstrap = *bootstrapConfig

	maxConcurrent, err := getEnvIntOrDefault("BOOTSTRAP_MAX_CONCURRENT_TESTS", 4)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load service configuration")
	}
	config.Service = ServiceConfig{MaxConcurrentTests: maxConcurrent}

	logConfig, err := loadLogConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load log configuration")
	}
	config.Log = *logConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadBootstrapConfig() (*BootstrapConfig, error) {
	cfg := &BootstrapConfig{}
	for _, field := range []struct {
		key          string
		defaultValue int
		dst          *int
	}{
		{"BOOTSTRAP_RESAMPLES", 100000, &cfg.Resamples},
		{"BOOTSTRAP_WORKERS", 0, &cfg.Workers},
		{"BOOTSTRAP_CHUNK_SIZE", 4096, &cfg.ChunkSize},
	} {
		value, err := getEnvIntOrDefault(field.key, field.defaultValue)
		if err != nil {
			return nil, err
		}
		*field.dst = value
	}

	if value := os.Getenv("BOOTSTRAP_SEED"); value != "" {
		seed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("BOOTSTRAP_SEED must be an integer, got %q", value))
		}
		cfg.Seed = seed
		cfg.Seeded = true
	}

	return cfg, nil
}

func loadLogConfig() (*LogConfig, error) {
	value := getEnvOrDefault("LOG_LEVEL", "INFO")
	level, ok := internal.ParseLogLevel(value)
	if !ok {
		return nil, errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of ERROR, WARN, INFO, DEBUG, TRACE", value))
	}
	return &LogConfig{Level: level}, nil
}

func validateConfig(config *Config) error {
	if config.Bootstrap.Resamples <= 0 {
		return errors.ConfigInvalid("BOOTSTRAP_RESAMPLES must be positive")
	}
	if config.Bootstrap.Workers < 0 {
		return errors.ConfigInvalid("BOOTSTRAP_WORKERS must not be negative")
	}
	if config.Bootstrap.ChunkSize <= 0 {
		return errors.ConfigInvalid("BOOTSTRAP_CHUNK_SIZE must be positive")
	}
	if config.Service.MaxConcurrentTests <= 0 {
		return errors.ConfigInvalid("BOOTSTRAP_MAX_CONCURRENT_TESTS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns defaultValue when key is unset and a
// ConfigInvalid error when it is set but not an integer
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}
