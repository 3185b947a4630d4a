package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/amqp"
	"financeflow/internal/cli"
	applog "financeflow/internal/log"
	"financeflow/internal/sheets"
	gsheet "financeflow/internal/sheets/google"
	memsheet "financeflow/internal/sheets/memory"
	"financeflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting financeflow-worker")

	cfg := cli.MustConfig(logger)
	if !cfg.ExportEnabled() {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	// The worker reads transactions straight from the snapshot database the
	// server writes, so a queued id can always be resolved to current data.
	sqliteStore := cli.MustSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteStore.Close()

	// Export destination: Google Sheets when configured, an in-process
	// appender otherwise so local runs still drain the queue.
	var appender sheets.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		appender = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-process appender")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(sqliteStore, appender)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeExports(ctx, exportWorker.HandleExportMessage)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down worker...")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
