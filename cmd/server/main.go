package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hasirciogluhq/sortbench/internal/api"
	"github.com/hasirciogluhq/sortbench/internal/config"
	"github.com/hasirciogluhq/sortbench/internal/core"
	"github.com/hasirciogluhq/sortbench/internal/factory"
	"github.com/hasirciogluhq/sortbench/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Debug)
	logger.Info("Starting sortbench server...",
		"addr", cfg.Addr(),
		"max_sessions", cfg.MaxSessions,
		"max_message_size", cfg.MaxMessageSize)

	// Create session handler
	handler := factory.NewHandlerFactory(cfg).Create()

	// Start TCP listener
	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Fatal("Failed to start listener", "addr", cfg.Addr(), "error", err)
	}
	server := core.NewServer(listener, handler, cfg.MaxSessions)
	logger.Info("Sort server listening", "addr", server.Addr().String())

	// Start health server
	healthServer := api.NewHealthServer(":"+cfg.HealthServerPort, server)
	healthServer.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve()
	}()

	// Mark as ready
	healthServer.SetReady(true)
	logger.Info("Server is ready to accept connections")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			logger.Fatal("Server error", "error", err)
		}
	}

	healthServer.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Sessions still running at shutdown", "error", err)
	}
	if err := healthServer.Stop(ctx); err != nil {
		logger.Warn("Health server shutdown error", "error", err)
	}
	logger.Info("Server stopped", "sessions", server.Stats().Total)
}
