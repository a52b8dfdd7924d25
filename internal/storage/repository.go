// Package storage keeps ledger documents in a SQLite table.
//
// It implements blob.Store with an integer version counter per path. The
// conditional write is a single UPDATE ... WHERE version = ?, so two
// processes sharing the database cannot overwrite each other silently.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"nomina/internal/blob"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements blob.Store
func (r *SQLiteRepository) Get(ctx context.Context, path string) ([]byte, string, error) {
	var (
		content []byte
		version int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT content, version FROM documents WHERE path = ?`, path).
		Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", blob.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("select document %q: %w", path, err)
	}
	return content, strconv.FormatInt(version, 10), nil
}

// Put implements blob.Store
func (r *SQLiteRepository) Put(ctx context.Context, path string, data []byte, expectedVersion string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var newVersion int64
	if expectedVersion == "" {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (path, content, version) VALUES (?, ?, 1)
			 ON CONFLICT(path) DO NOTHING`, path, data)
		if err != nil {
			return "", fmt.Errorf("insert document %q: %w", path, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", fmt.Errorf("%w: %q already exists", blob.ErrVersionConflict, path)
		}
		newVersion = 1
	} else {
		expected, err := strconv.ParseInt(expectedVersion, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: malformed version %q", blob.ErrVersionConflict, expectedVersion)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE documents
			    SET content = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			  WHERE path = ? AND version = ?`, data, path, expected)
		if err != nil {
			return "", fmt.Errorf("update document %q: %w", path, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", fmt.Errorf("%w: %q is no longer at version %d", blob.ErrVersionConflict, path, expected)
		}
		newVersion = expected + 1
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_history (path, version, size_bytes) VALUES (?, ?, ?)`,
		path, newVersion, len(data)); err != nil {
		return "", fmt.Errorf("record document history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit document %q: %w", path, err)
	}

	slog.DebugContext(ctx, "Document saved to SQLite",
		"path", path,
		"version", newVersion,
		"size_bytes", len(data))
	return strconv.FormatInt(newVersion, 10), nil
}

// History returns the versions written for path, newest first.
func (r *SQLiteRepository) History(ctx context.Context, path string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT version FROM document_history WHERE path = ? ORDER BY version DESC LIMIT ?`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Ping implements blob.Pinger
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
