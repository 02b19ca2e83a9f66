// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything cmd/server needs to wire the service.
type Config struct {
	// Server settings
	Host string
	Port int

	// Relational store
	DatabaseURL string

	// Object store
	ObjectEndpointURL string
	ObjectRegion      string
	ObjectUseSSL      bool
	ObjectAccessKey   string
	ObjectSecretKey   string
	ObjectLocalRoot   string
	Bucket            string

	// Pipeline
	ScratchDir string

	// Logging
	LogLevel  string
	LogFormat string

	// Rate limiting (requests per second per client; 0 disables)
	RatePerSecond float64
	RateBurst     int
}

// Load reads configuration from INGEST_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Host:              getEnv("INGEST_HOST", "0.0.0.0"),
		Port:              getEnvInt("INGEST_PORT", 8080),
		DatabaseURL:       os.Getenv("INGEST_DATABASE_URL"),
		ObjectEndpointURL: getEnv("INGEST_OBJECT_ENDPOINT", ""),
		ObjectRegion:      getEnv("INGEST_OBJECT_REGION", ""),
		ObjectUseSSL:      getEnvBool("INGEST_OBJECT_USE_SSL", false),
		ObjectAccessKey:   os.Getenv("INGEST_OBJECT_ACCESS_KEY"),
		ObjectSecretKey:   os.Getenv("INGEST_OBJECT_SECRET_KEY"),
		ObjectLocalRoot:   getEnv("INGEST_OBJECT_LOCAL_ROOT", ""),
		Bucket:            getEnv("INGEST_BUCKET", "datakeep"),
		ScratchDir:        getEnv("INGEST_SCRATCH_DIR", os.TempDir()),
		LogLevel:          getEnv("INGEST_LOG_LEVEL", "info"),
		LogFormat:         getEnv("INGEST_LOG_FORMAT", "text"),
		RatePerSecond:     getEnvFloat("INGEST_RATE_PER_SECOND", 10),
		RateBurst:         getEnvInt("INGEST_RATE_BURST", 20),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("INGEST_DATABASE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
