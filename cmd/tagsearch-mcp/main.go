package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/app"
	"github.com/gcbaptista/tagsearch/internal/logging"
	"github.com/gcbaptista/tagsearch/internal/mcp"
	"github.com/gcbaptista/tagsearch/internal/storage"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Tag Search MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for the MCP protocol
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr})
	logger := logging.With().Str("component", "main").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg, logging.Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open application")
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := a.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("close failed")
		}
	}()
	if err := a.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start application")
		return
	}

	server, err := mcp.NewServer(a, logging.Logger())
	if err != nil {
		logger.Error().Err(err).Msg("failed to create MCP server")
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	logger.Info().Msg("server stopped")
}
