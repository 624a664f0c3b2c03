package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// API configuration
	APIPort int

	// Engine configuration
	Engine EngineConfig
}

// EngineConfig holds aggregation engine parameters
type EngineConfig struct {
	// NewHighLookbackDays is the trailing window (in trading days) for the
	// concept new-high detector
	NewHighLookbackDays int

	// BulkWorkers bounds the parallelism of historical range recomputes.
	// The default of 1 runs dates sequentially in ascending order, which a
	// backfill needs for correct trailing-window highs; raise it only for
	// ranges whose windows do not overlap.
	BulkWorkers int

	// DisableRedisLock turns off the cross-process per-date lock; the
	// in-process lock always applies
	DisableRedisLock bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "concept_insight"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "concept"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "concept123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		APIPort: getEnvInt("API_PORT", 8080),

		Engine: EngineConfig{
			NewHighLookbackDays: getEnvInt("ENGINE_LOOKBACK_DAYS", 10),
			BulkWorkers:         getEnvInt("ENGINE_BULK_WORKERS", 1),
			DisableRedisLock:    getEnvOrDefault("ENGINE_DISABLE_REDIS_LOCK", "false") == "true",
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
