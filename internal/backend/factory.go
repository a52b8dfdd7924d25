// Package backend picks the document store the ledger persists to.
package backend

import (
	"context"
	"fmt"

	"nomina/internal/blob/contentapi"
	"nomina/internal/blob/file"
	"nomina/internal/blob/memory"
	"nomina/internal/log"
	"nomina/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case FileBackend:
		return f.createFileBackend(config)
	case ContentAPIBackend:
		return f.createContentAPIBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", log.FieldPath, config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "."
	}
	store, err := file.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "data_directory", dataDir)

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createContentAPIBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client := contentapi.NewClient(contentapi.Config{
		BaseURL: config.ContentAPIURL,
		Token:   config.ContentAPIToken,
		Branch:  config.ContentAPIBranch,
		Timeout: config.ContentAPITimeout,
	})

	// An unreachable remote is reported by readiness, not fatal at startup
	if err := client.Ping(ctx); err != nil {
		f.logger.Warn("Content API not reachable at startup", log.FieldError, err)
	}

	f.logger.Info("Initialized content API backend",
		"base_url", config.ContentAPIURL,
		"branch", config.ContentAPIBranch)

	return &BackendResult{Store: client}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend, entries are lost on restart")

	return &BackendResult{Store: memory.NewStore()}, nil
}
