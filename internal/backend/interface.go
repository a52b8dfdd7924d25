package backend

import (
	"context"
	"time"

	"nomina/internal/blob"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the document store and optional cleanup function
type BackendResult struct {
	Store   blob.Store
	Cleanup CleanupFunc
}

// Ping reports readiness when the store supports it.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Store.(blob.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a document store based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// File specific
	DataDirectory string

	// Content API specific
	ContentAPIURL     string
	ContentAPIToken   string
	ContentAPIBranch  string
	ContentAPITimeout time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend     BackendType = "memory"
	FileBackend       BackendType = "file"
	SQLiteBackend     BackendType = "sqlite"
	ContentAPIBackend BackendType = "contentapi"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, ContentAPIBackend:
		return true
	default:
		return false
	}
}
