// Package config loads process-level settings from the environment and
// wires the ambient stack: slog output and optional OTLP tracing.
// Component-specific settings (the store's DB_* variables) live with
// their component; this package only owns what the process entrypoints
// need.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for process-level settings.
const (
	DefaultModelName     = "claude-sonnet-4-5"
	DefaultMaxIterations = 100
	DefaultHTTPPort      = 8080
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultOTLPEndpoint  = "localhost:4317"
)

// Config holds process-level configuration.
type Config struct {
	ModelName     string // MODEL_NAME: routes to a provider by prefix
	MaxIterations int    // MAX_ITERATIONS: loop cap per processing pass
	HTTPPort      int    // HTTP_PORT: serve listen port
	LogLevel      string // LOG_LEVEL: debug|info|warn|error
	LogFormat     string // LOG_FORMAT: text|json
	EnableTracing bool   // ENABLE_TRACING: export OTLP spans
	OTLPEndpoint  string // OTLP_ENDPOINT: collector address
}

// LoadFromEnv reads configuration from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		ModelName:     getEnv("MODEL_NAME", DefaultModelName),
		MaxIterations: DefaultMaxIterations,
		HTTPPort:      DefaultHTTPPort,
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:     getEnv("LOG_FORMAT", DefaultLogFormat),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", DefaultOTLPEndpoint),
	}

	if raw := os.Getenv("MAX_ITERATIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_ITERATIONS %q: must be a positive integer", raw)
		}
		cfg.MaxIterations = n
	}

	if raw := os.Getenv("HTTP_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("invalid HTTP_PORT %q", raw)
		}
		cfg.HTTPPort = port
	}

	if raw := os.Getenv("ENABLE_TRACING"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENABLE_TRACING %q: must be a boolean", raw)
		}
		cfg.EnableTracing = enabled
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
