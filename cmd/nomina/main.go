package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"nomina/internal/amqp"
	"nomina/internal/cache"
	"nomina/internal/cli"
	apphttp "nomina/internal/http"
	"nomina/internal/log"
	"nomina/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, nil)

	// AMQP is optional for the server: without it the summary mirror is
	// refreshed only by the worker's startup and monthly-close syncs.
	var (
		events     services.EventPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			amqpClient = client
			events = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - summaries will not be mirrored on change")
	}

	ledger := cli.InitLedger(context.Background(), logger, cfg, events)
	authn := cli.InitAuth(logger, cfg)

	caches := cache.NewManager(logger)
	caches.Register("sessions", authn.Sessions())
	caches.StartCleanup(cfg.CacheCleanupInterval)

	srv := apphttp.NewServer(":"+cfg.Port, ledger.Service, authn, logger)
	srv.MaxHeaderBytes = 1 << 16 // 64KB
	srv.AddReadinessCheck("storage", ledger.Backend.Ping)
	if amqpClient != nil {
		srv.AddReadinessCheck("amqp", func(ctx context.Context) error {
			if !amqpClient.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		})
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := ledger.Backend.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting nomina server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"records_path", ledger.Records.Path())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
