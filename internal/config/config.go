package config

import (
	"os"
	"time"
)

type Config struct {
	ExpiryPollInterval time.Duration
	UploadTimeout      time.Duration
	LogLevel           string
}

func Load() *Config {
	return &Config{
		ExpiryPollInterval: getEnvDuration("EXPIRY_POLL_INTERVAL", time.Second),
		UploadTimeout:      getEnvDuration("UPLOAD_TIMEOUT", 10*time.Second),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
