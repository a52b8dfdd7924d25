// Package cli provides common CLI initialization utilities shared by
// cmd/nomina and cmd/nomina-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nomina/internal/auth"
	"nomina/internal/backend"
	"nomina/internal/config"
	"nomina/internal/log"
	"nomina/internal/payroll"
	"nomina/internal/records"
	"nomina/internal/services"
)

// SetupLogger initializes structured logging at the given level and makes
// it the process default.
func SetupLogger(level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Ledger bundles the document store and the services built on it.
type Ledger struct {
	Backend  *backend.BackendResult
	Records  *records.Store
	Settings *payroll.SettingsStore
	Service  *services.LedgerService
}

// InitLedger opens the configured backend and builds the ledger service.
// Returns the bundle or exits the process on failure.
func InitLedger(ctx context.Context, logger *log.Logger, cfg *config.Config, events services.EventPublisher) *Ledger {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	store := records.NewStore(result.Store, cfg.RecordsPath, logger)
	settings := payroll.NewSettingsStore(result.Store, cfg.SettingsPath, logger)
	return &Ledger{
		Backend:  result,
		Records:  store,
		Settings: settings,
		Service:  services.NewLedgerService(store, settings, events, logger),
	}
}

// InitAuth builds the casbin authorizer and the session authenticator.
// Returns the authenticator or exits the process on failure.
func InitAuth(logger *log.Logger, cfg *config.Config) *auth.Authenticator {
	authz, err := auth.NewAuthorizer(cfg.PolicyPath)
	if err != nil {
		logger.Error("Failed to load authorization policy", log.FieldError, err, log.FieldPath, cfg.PolicyPath)
		os.Exit(1)
	}
	authn, err := auth.NewAuthenticator(auth.Config{
		PassphraseHash: cfg.AdminPassphraseHash,
		Passphrase:     cfg.AdminPassphrase,
		SessionTTL:     cfg.SessionTTL,
	}, authz, logger)
	if err != nil {
		logger.Error("Failed to initialize authentication", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AdminPassphrase == "" && cfg.AdminPassphraseHash == "" {
		logger.Warn("No admin passphrase configured, admin views are disabled")
	}
	return authn
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
