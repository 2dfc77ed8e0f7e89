// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Reputation
	SnapshotInterval     time.Duration // How often the worker persists scores
	ReputationHMACSecret string        // HMAC secret for signing score responses (optional)

	// Security
	RateLimitRPM   int    // Requests per minute per client
	AllowedOrigins string // Comma-separated CORS origins, "*" in development

	// Observability
	OTLPEndpoint string // OpenTelemetry collector endpoint (optional)
}

const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultSnapshotInterval = 15 * time.Minute
	DefaultRateLimitRPM     = 300
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:          os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		SnapshotInterval:     getEnvDuration("SNAPSHOT_INTERVAL", DefaultSnapshotInterval),
		ReputationHMACSecret: os.Getenv("REPUTATION_HMAC_SECRET"),
		RateLimitRPM:         getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),
		AllowedOrigins:       getEnv("ALLOWED_ORIGINS", "*"),
		OTLPEndpoint:         os.Getenv("OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.SnapshotInterval < time.Second {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be at least 1s, got %s", c.SnapshotInterval)
	}
	if c.RateLimitRPM < 1 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.RateLimitRPM)
	}
	if c.IsProduction() && c.AllowedOrigins == "*" {
		return fmt.Errorf("ALLOWED_ORIGINS must be set explicitly in production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
