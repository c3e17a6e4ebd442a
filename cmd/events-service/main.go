package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/agenda-distribuida/events-service/internal/config"
	"github.com/agenda-distribuida/events-service/internal/database"
	"github.com/agenda-distribuida/events-service/internal/filestore"
	"github.com/agenda-distribuida/events-service/internal/ingest"
	"github.com/agenda-distribuida/events-service/internal/notifier"
	"github.com/agenda-distribuida/events-service/internal/repository"
	"github.com/agenda-distribuida/events-service/internal/server"
)

func main() {
	// Initialize logger with console writer for better formatting in containers
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().
		Timestamp().
		Logger()

	// Load configuration
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.DefaultContextLogger = &logger

	// Initialize database
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Initialize file store
	files, err := filestore.New(cfg.Storage.Root, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize file store")
	}

	// Optional Redis notifier; nil when REDIS_ADDR is unset
	notify := notifier.New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Channel, logger)
	defer notify.Close()

	// Ingestion pipeline over both sinks
	eventRepo := repository.NewEventRepository(db.DB(), logger)
	pipeline := ingest.New(eventRepo, files, notify, cfg.Ingest.BulkInsertDB, logger)

	// Create and start server
	srv := server.New(cfg, db.DB(), files, pipeline, &logger)

	// Channel to listen for errors from server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for an error or interrupt signal
	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server stopped")
}
