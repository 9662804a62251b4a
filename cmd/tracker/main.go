package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tracker/internal/config"
	"tracker/internal/storage"
	"tracker/internal/storage/mongo"
	"tracker/internal/storage/sqlite"
)

var cfg config.Config

func main() {
	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Project tracker backend with sprints, tasks and boards",
		Long: `tracker serves a REST API for projects, sprints and tasks.

Settings default to TRACKER_* environment variables; flags override them.
A JWT signing secret (TRACKER_JWT_SECRET or --jwt-secret) is required to serve.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Driver, "driver", cfg.Driver, "Storage driver: sqlite or mongo")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to sqlite database file")
	flags.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection string")
	flags.StringVar(&cfg.MongoDB, "mongo-db", cfg.MongoDB, "MongoDB database name")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console or json")

	rootCmd.AddCommand(newServeCmd(), newSeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the log flags.
func newLogger(out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}

	var w io.Writer = out
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, logger zerolog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.DBPath, logger)
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
