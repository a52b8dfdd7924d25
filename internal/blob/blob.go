// Package blob defines the versioned document store the ledger persists to.
//
// A document is addressed by path and carries an opaque version token.
// Writes are conditional on the version the caller last read, which turns
// concurrent read-modify-write races into explicit conflicts.
package blob

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no document exists at path.
	ErrNotFound = errors.New("blob not found")
	// ErrVersionConflict is returned by Put when the stored version differs
	// from the expected one.
	ErrVersionConflict = errors.New("blob version conflict")
)

// Store reads and conditionally writes whole documents.
type Store interface {
	// Get returns the document bytes and their version token.
	Get(ctx context.Context, path string) ([]byte, string, error)
	// Put stores data when the current version equals expectedVersion and
	// returns the new version. An empty expectedVersion means the document
	// must not exist yet.
	Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error)
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
