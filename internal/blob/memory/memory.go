// Package memory provides an in-process blob.Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"nomina/internal/blob"
)

type document struct {
	data    []byte
	version int64
}

// Store keeps documents in a map guarded by a RWMutex. Versions are
// per-path counters.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document
}

func NewStore() *Store {
	return &Store{docs: make(map[string]document)}
}

// Seed stores data at path without a version check.
func (s *Store) Seed(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[path]
	s.docs[path] = document{data: append([]byte(nil), data...), version: d.version + 1}
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[path]
	if !ok {
		return nil, "", blob.ErrNotFound
	}
	return append([]byte(nil), d.data...), strconv.FormatInt(d.version, 10), nil
}

func (s *Store) Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := ""
	d, ok := s.docs[path]
	if ok {
		current = strconv.FormatInt(d.version, 10)
	}
	if current != expectedVersion {
		return "", fmt.Errorf("%w: %q is at version %q, expected %q", blob.ErrVersionConflict, path, current, expectedVersion)
	}
	d = document{data: append([]byte(nil), data...), version: d.version + 1}
	s.docs[path] = d
	return strconv.FormatInt(d.version, 10), nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
