package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"scifig/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine   EngineConfig
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
}

// EngineConfig holds the tunables of the statistical decision engine
type EngineConfig struct {
	Alpha          float64 // significance level for assumption checks
	TTestMinSample int     // total N required before a t-test is recommended
	MaxRows        int     // 0 disables the cap
	Confidence     float64 // confidence level of reported intervals
}

// ServerConfig holds HTTP adapter settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	BatchWorkers    int
}

// DatabaseConfig holds database connection settings. Persistence is optional:
// an empty URL runs the engine without storing outcomes.
type DatabaseConfig struct {
	URL string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Pretty bool
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Alpha:          0.05,
		TTestMinSample: 30,
		MaxRows:        100000,
		Confidence:     0.95,
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Engine:   loadEngineConfig(),
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Log:      loadLogConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadEngineConfig() EngineConfig {
	defaults := DefaultEngineConfig()
	return EngineConfig{
		Alpha:          getEnvFloatOrDefault("SCIFIG_ALPHA", defaults.Alpha),
		TTestMinSample: getEnvIntOrDefault("SCIFIG_TTEST_MIN_SAMPLE", defaults.TTestMinSample),
		MaxRows:        getEnvIntOrDefault("SCIFIG_MAX_ROWS", defaults.MaxRows),
		Confidence:     getEnvFloatOrDefault("SCIFIG_CONFIDENCE", defaults.Confidence),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		BatchWorkers:    getEnvIntOrDefault("SCIFIG_BATCH_WORKERS", 4),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL: getEnvOrDefault("DATABASE_URL", ""),
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Pretty: getEnvBoolOrDefault("LOG_PRETTY", false),
	}
}

func validateConfig(config *Config) error {
	return ValidateEngine(config.Engine)
}

// ValidateEngine checks engine tunables; also used by callers that build an
// EngineConfig by hand
func ValidateEngine(engine EngineConfig) error {
	if engine.Alpha <= 0 || engine.Alpha >= 1 {
		return errors.ConfigInvalid("alpha must be in (0, 1)")
	}
	if engine.TTestMinSample < 2 {
		return errors.ConfigInvalid("t-test minimum sample must be at least 2")
	}
	if engine.MaxRows < 0 {
		return errors.ConfigInvalid("max rows cannot be negative")
	}
	if engine.Confidence <= 0 || engine.Confidence >= 1 {
		return errors.ConfigInvalid("confidence level must be in (0, 1)")
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

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
