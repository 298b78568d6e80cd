// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/crisislab/reliefweb-ingest/pkg/adapters/http"
	"github.com/crisislab/reliefweb-ingest/pkg/core/config"
	"github.com/crisislab/reliefweb-ingest/pkg/core/state"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
	"github.com/crisislab/reliefweb-ingest/pkg/ingest"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
	"github.com/crisislab/reliefweb-ingest/pkg/reliefweb"
	"github.com/crisislab/reliefweb-ingest/pkg/scheduler"

	// Artifact store backends.
	_ "github.com/crisislab/reliefweb-ingest/pkg/filestore/filesystem"
	_ "github.com/crisislab/reliefweb-ingest/pkg/filestore/memory"
	_ "github.com/crisislab/reliefweb-ingest/pkg/filestore/s3"

	// Job store backends.
	_ "github.com/crisislab/reliefweb-ingest/pkg/storage/memory"
	_ "github.com/crisislab/reliefweb-ingest/pkg/storage/postgres"
	_ "github.com/crisislab/reliefweb-ingest/pkg/storage/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Print version
	if *version {
		fmt.Printf("ReliefWeb Ingest Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Initialize logger
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting ReliefWeb Ingest Server",
		"version", Version,
		"build_time", BuildTime)

	initCtx := context.Background()

	// Initialize job store
	jobs, err := state.Providers.New(initCtx, cfg.Storage.Type, cfg.Storage.Params())
	if err != nil {
		logger.Error("Failed to initialize job store", "error", err)
		os.Exit(1)
	}
	defer jobs.Close()
	logger.Info("Initialized job store", "type", cfg.Storage.Type)

	// Initialize artifact store
	artifacts, err := filestore.Providers.New(initCtx, cfg.FileStore.Type, cfg.FileStore.Params())
	if err != nil {
		logger.Error("Failed to initialize artifact store", "error", err)
		os.Exit(1)
	}
	defer artifacts.Close(context.Background())
	logger.Info("Initialized artifact store", "type", cfg.FileStore.Type)

	// Initialize the ReliefWeb client and the pipelines
	client := reliefweb.NewClient(cfg.ReliefWeb.BaseURL, cfg.ReliefWeb.AppName)
	fetcher := ingest.NewFetcher(client, artifacts, logger)
	processor := ingest.NewProcessor(artifacts, logger, cfg.Processing.Workers)

	// Initialize the job scheduler
	sched := scheduler.New(jobs, logger, cfg.Scheduler.JobTTL)

	// Initialize HTTP adapter
	handler := httpAdapter.New(logger, sched, jobs, artifacts, client, fetcher, processor)
	logger.Info("Initialized HTTP adapter")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sweep expired jobs in the background
	go sched.Run(ctx)

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		logger.Error("Scheduler shutdown error", "error", err)
	}

	logger.Info("Server stopped gracefully")
}
