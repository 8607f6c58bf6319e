// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBPath        string
	LogLevel      string
	LogFormat     string
	RetentionDays int
	SweepInterval time.Duration
	SessionTTL    time.Duration
}

// Load reads the configuration. A missing .env file is not an error; values
// already in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:      getenv("INKWELL_ADDR", ":8080"),
		DBPath:    getenv("INKWELL_DB_PATH", "inkwell.db"),
		LogLevel:  getenv("INKWELL_LOG_LEVEL", "info"),
		LogFormat: getenv("INKWELL_LOG_FORMAT", "text"),
	}

	var err error
	if cfg.RetentionDays, err = getenvInt("INKWELL_HISTORY_RETENTION_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.RetentionDays <= 0 {
		return Config{}, fmt.Errorf("INKWELL_HISTORY_RETENTION_DAYS must be positive, got %d", cfg.RetentionDays)
	}
	if cfg.SweepInterval, err = getenvDuration("INKWELL_SWEEP_INTERVAL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = getenvDuration("INKWELL_SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
