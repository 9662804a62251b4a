package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tracker/internal/auth"
	"tracker/internal/seed"
	"tracker/internal/server"
	"tracker/internal/service"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and serve the web frontend",
		RunE:  runServe,
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flags.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory with built frontend")
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret used to sign bearer tokens")
	flags.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Lifetime of issued bearer tokens")
	flags.BoolVar(&cfg.Seed, "seed", cfg.Seed, "Load the demo seed when the store has no tasks")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(os.Stdout)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, logger)
	if err != nil {
		logger.Error().Err(err).Msg("unable to open database")
		return err
	}
	defer store.Close()

	hasher := auth.NewBcryptHasher(0)
	if cfg.Seed {
		data, err := seed.Default()
		if err != nil {
			return err
		}
		if _, err := seed.NewLoader(store, hasher, logger, nil).RunIfEmpty(ctx, data); err != nil {
			logger.Error().Err(err).Msg("seed failed")
			return err
		}
	}

	svc := service.New(store, hasher, logger)
	srv := server.New(svc, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), logger, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Str("driver", cfg.Driver).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	logger.Info().Msg("server stopped")
	return nil
}
