package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"junction-worker-go/internal/config"
	"junction-worker-go/internal/logging"
	"junction-worker-go/internal/services"
)

// @title Junction Worker API
// @version 1.0.0
// @description Vehicle tracking, zone counting and traffic signal control for a single junction camera
// @BasePath /
func main() {
	// Console logging until the configuration is known
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	logging.Setup(cfg)

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("source", cfg.Source).
		Msg("Starting junction worker")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wait for interrupt signal
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	runErr := container.Run(ctx)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Services forced to shutdown")
	} else {
		log.Info().Str("session_id", container.SessionID).Msg("Shutdown complete")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Worker stopped with error")
		os.Exit(1)
	}
}
