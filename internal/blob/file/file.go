// Package file stores documents on the local filesystem.
//
// The version token is the hex SHA-256 of the content. Writes go to a
// temporary file in the same directory and are renamed into place.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nomina/internal/blob"
)

type Store struct {
	root string
	// mu serialises check-and-write within this process.
	mu sync.Mutex
}

// NewStore creates the root directory when missing.
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" || strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Version returns the token for data.
func Version(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", blob.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", full, err)
	}
	return data, Version(data), nil
}

func (s *Store) Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := ""
	existing, err := os.ReadFile(full)
	switch {
	case err == nil:
		current = Version(existing)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", fmt.Errorf("read %q: %w", full, err)
	}
	if current != expectedVersion {
		return "", fmt.Errorf("%w: %q changed since it was read", blob.ErrVersionConflict, path)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %q: %w", full, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-"+filepath.Base(full)+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replace %q: %w", full, err)
	}
	return Version(data), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(s.root)
	return err
}
