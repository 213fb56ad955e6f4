package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gcbaptista/tagsearch/api"
	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/app"
	"github.com/gcbaptista/tagsearch/internal/logging"
	"github.com/gcbaptista/tagsearch/internal/storage"
)

var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	var (
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
		configPath = flag.String("config", "", "Path to a YAML config file (default: search "+config.ConfigPathEnvVar+" and ./config.yaml)")
		port       = flag.String("port", "", "Port to run the server on (overrides server.port)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides database.path)")
	)
	flag.Parse()

	if *help {
		fmt.Printf("Tag Search - tag-based post search, merged groups and recommendations\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                          # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --port 9000              # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --db /tmp/tags.db        # Use a custom database file\n", os.Args[0])
		return
	}

	if *showVer {
		fmt.Printf("Tag Search %s\n", version)
		fmt.Printf("Build Mode: %s, SQLite Driver: %s\n", storage.BuildMode, storage.DriverName)
		return
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := logging.Logger()

	if err := run(cfg); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(cfg *config.Config) error {
	logger := logging.With().Str("component", "server").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logging.Logger())
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close(context.Background())
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(a, logging.Logger()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Str("version", version).
			Str("build_mode", storage.BuildMode).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = a.Close(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if err := a.Close(shutdownCtx); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
