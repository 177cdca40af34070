// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for universe.db and portfolio.db (always absolute)
	LogLevel           string
	Port               int
	DevMode            bool
	DefaultProfile     string  // Profile used when a request carries no X-Profile-ID header
	DefaultBucketCash  float64 // Cash a new bucket starts with
	DefaultAccountCash float64
	StockSearchLimit   int    // Typeahead result count
	SnapshotSchedule   string // Cron spec for the bucket value snapshot
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RISKBUCKET_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("GO_PORT", 8001),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DefaultProfile:     getEnv("DEFAULT_PROFILE", "anonymous"),
		DefaultBucketCash:  getEnvAsFloat("DEFAULT_BUCKET_CASH", 1000.0),
		DefaultAccountCash: getEnvAsFloat("DEFAULT_ACCOUNT_CASH", 10000.0),
		StockSearchLimit:   getEnvAsInt("STOCK_SEARCH_LIMIT", 4),
		SnapshotSchedule:   getEnv("SNAPSHOT_SCHEDULE", "0 22 * * 1-5"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.StockSearchLimit <= 0 {
		return fmt.Errorf("stock search limit must be positive, got %d", c.StockSearchLimit)
	}
	if c.DefaultBucketCash < 0 || c.DefaultAccountCash < 0 {
		return fmt.Errorf("default cash can not be negative")
	}
	if c.DefaultProfile == "" {
		return fmt.Errorf("default profile is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
