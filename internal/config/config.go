// Package config loads runtime settings from TRACKER_* environment
// variables. Command-line flags override them in cmd/tracker.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds everything the tracker needs to start.
type Config struct {
	Addr      string
	Driver    string
	DBPath    string
	MongoURI  string
	MongoDB   string
	JWTSecret string
	TokenTTL  time.Duration
	StaticDir string
	LogLevel  string
	LogFormat string
	Seed      bool
}

// Load reads the environment, falling back to defaults for unset keys.
func Load() (Config, error) {
	cfg := Config{
		Addr:      EnvOrDefault("TRACKER_ADDR", ":8080"),
		Driver:    EnvOrDefault("TRACKER_DRIVER", DriverSQLite),
		DBPath:    EnvOrDefault("TRACKER_DB_PATH", "data/tracker.db"),
		MongoURI:  EnvOrDefault("TRACKER_MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   EnvOrDefault("TRACKER_MONGO_DB", "tracker"),
		JWTSecret: os.Getenv("TRACKER_JWT_SECRET"),
		StaticDir: EnvOrDefault("TRACKER_STATIC_DIR", "web/dist"),
		LogLevel:  EnvOrDefault("TRACKER_LOG_LEVEL", "info"),
		LogFormat: EnvOrDefault("TRACKER_LOG_FORMAT", "console"),
	}

	ttl, err := time.ParseDuration(EnvOrDefault("TRACKER_TOKEN_TTL", "24h"))
	if err != nil {
		return cfg, fmt.Errorf("TRACKER_TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	seed, err := strconv.ParseBool(EnvOrDefault("TRACKER_SEED", "true"))
	if err != nil {
		return cfg, fmt.Errorf("TRACKER_SEED: %w", err)
	}
	cfg.Seed = seed

	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Driver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("database path is empty"))
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDB == "" {
			errs = append(errs, errors.New("mongo uri and database are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Driver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is empty (set TRACKER_JWT_SECRET)"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
