package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"nomina/internal/amqp"
	"nomina/internal/cli"
	"nomina/internal/config"
	"nomina/internal/log"
	"nomina/internal/scheduler"
	ports "nomina/internal/sheets"
	gsheet "nomina/internal/sheets/google"
	"nomina/internal/sheets/memory"
	"nomina/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting nomina-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	// The worker only reads the ledger, so it publishes nothing itself.
	ledger := cli.InitLedger(context.Background(), logger, cfg, nil)

	var writer ports.SummaryWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SummarySheet:       cfg.GoogleSummarySheet,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = sheetsClient
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, summaries kept in memory")
	}

	syncWorker := worker.NewSummaryWorker(ledger.Service, writer, logger)
	sched := scheduler.New(cfg.MonthlyCloseSpec, amqpClient, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
	})

	// On startup, mirror the current state in case events were missed
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup sync", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeRecordsChanged(gctx, syncWorker.HandleRecordsChanged)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		closeAll(logger, amqpClient, ledger)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	closeAll(logger, amqpClient, ledger)
	logger.Info("Worker shutdown complete", "last_sync", syncWorker.LastSync())
}

func closeAll(logger *log.Logger, amqpClient *amqp.Client, ledger *cli.Ledger) {
	if err := amqpClient.Close(); err != nil {
		logger.Warn("AMQP close error", log.FieldError, err)
	}
	if err := ledger.Backend.Close(); err != nil {
		logger.Warn("Backend close error", log.FieldError, err)
	}
}
