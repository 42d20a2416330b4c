// Package main provides the entry point for the OAuth 2.0 token provider.
// It loads the configuration, wires the provider and manages the server
// lifecycle with graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jamesprial/oauth2-provider/internal/config"
	"github.com/jamesprial/oauth2-provider/internal/logging"
	"github.com/jamesprial/oauth2-provider/internal/provider"
)

func main() {
	configPath := flag.String("config", os.Getenv("OAUTH2_CONFIG"), "path to a YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "oauth2-provider: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	logger.Info("server configuration loaded",
		zap.String("addr", cfg.Server.Addr),
		zap.String("base_url", cfg.Server.BaseURL),
		zap.Stringer("config", cfg),
	)

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := provider.New(ctx, cfg, provider.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	server := p.Server()
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		serverErrCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server gracefully")
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped successfully")
	return nil
}
