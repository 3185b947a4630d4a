package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/cli"
	apphttp "financeflow/internal/http"
	applog "financeflow/internal/log"
	"financeflow/internal/storage"
	"financeflow/internal/store"
	"financeflow/internal/summary"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.MustConfig(logger)

	// Choose snapshot backend
	var snaps store.Snapshotter
	switch cfg.SnapshotBackend {
	case "sqlite":
		sqliteStore := cli.MustSQLite(logger, cfg.SQLiteDBPath)
		defer sqliteStore.Close()
		snaps = sqliteStore
		logger.Info("Initialized SQLite snapshot backend", "path", cfg.SQLiteDBPath)
	default:
		snaps = storage.NewMemoryStore()
		logger.Info("Initialized memory snapshot backend")
	}

	st := store.New(snaps)
	if err := st.Load(context.Background()); err != nil {
		logger.Error("Failed to restore snapshots", "error", err)
		os.Exit(1)
	}

	// AMQP export publishing is optional; without a broker URL transactions
	// are still stored, just never forwarded to the export queue.
	var publisher apphttp.ExportPublisher
	if cfg.ExportEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP export publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP export publishing disabled - no AMQP_URL provided")
	}

	// Choose summary backend
	var gen summary.Generator
	switch cfg.SummaryBackend {
	case "gemini":
		g, err := summary.NewGemini(context.Background(), cfg.SummaryModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini summary backend", "error", err)
			os.Exit(1)
		}
		gen = g
		logger.Info("Initialized Gemini summary backend")
	default:
		gen = summary.NewStatic()
		logger.Info("Initialized static summary backend")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                 ":" + cfg.Port,
		Store:                st,
		Publisher:            publisher,
		SummaryGen:           gen,
		SummaryCacheSize:     cfg.CacheSize,
		SummaryTTL:           cfg.SummaryTTL,
		CacheCleanupInterval: cfg.CacheCleanupInterval,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting financeflow server", "port", cfg.Port, "snapshot_backend", cfg.SnapshotBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
