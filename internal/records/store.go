package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nomina/internal/blob"
	"nomina/internal/core"
	"nomina/internal/log"
)

// DefaultPath is the document path used when none is configured.
const DefaultPath = "data/entries.csv"

// StorageWriteError wraps a failed persistence call. Nothing was written.
type StorageWriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageReadError wraps a failed or unparsable read.
type StorageReadError struct {
	Path string
	Err  error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// Snapshot is the state of the document at one version.
type Snapshot struct {
	Rows          []Row
	Version       string
	SchemaVersion int
}

// Live returns non-deleted entries in insertion order with duplicate flags set.
func (s Snapshot) Live() []core.Entry {
	out := make([]core.Entry, 0, len(s.Rows))
	for _, r := range s.Rows {
		if !r.Deleted {
			out = append(out, r.Entry)
		}
	}
	FlagDuplicates(out)
	return out
}

// MaxID returns the highest id ever assigned, tombstones included.
func (s Snapshot) MaxID() int64 {
	var max int64
	for _, r := range s.Rows {
		if r.ID > max {
			max = r.ID
		}
	}
	return max
}

// FlagDuplicates marks every entry whose non-empty (employee, case number)
// pair appears more than once. Existing flags are overwritten.
func FlagDuplicates(entries []core.Entry) {
	type key struct{ employee, caseNumber string }
	counts := make(map[key]int, len(entries))
	for _, e := range entries {
		if cn := strings.TrimSpace(e.CaseNumber); cn != "" {
			counts[key{e.Employee, cn}]++
		}
	}
	for i := range entries {
		cn := strings.TrimSpace(entries[i].CaseNumber)
		entries[i].Duplicate = cn != "" && counts[key{entries[i].Employee, cn}] > 1
	}
}

// Store is the Record Store: an append-only ledger with soft deletion.
type Store struct {
	blobs  blob.Store
	path   string
	logger *log.Logger
}

func NewStore(blobs blob.Store, path string, logger *log.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{blobs: blobs, path: path, logger: logger.WithComponent(log.ComponentRecords)}
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// load reads and decodes the document. A missing document is an empty
// snapshot at version "".
func (s *Store) load(ctx context.Context) (Snapshot, error) {
	data, version, err := s.blobs.Get(ctx, s.path)
	if errors.Is(err, blob.ErrNotFound) {
		return Snapshot{SchemaVersion: SchemaVersion}, nil
	}
	if err != nil {
		return Snapshot{}, &StorageReadError{Path: s.path, Err: err}
	}
	rows, schema, err := Decode(data)
	if err != nil {
		return Snapshot{}, &StorageReadError{Path: s.path, Err: err}
	}
	if schema != SchemaVersion {
		s.logger.InfoContext(ctx, "Legacy ledger document migrated on load",
			log.FieldBlobPath, s.path,
			"schema_version", schema,
			"rows", len(rows))
	}
	return Snapshot{Rows: rows, Version: version, SchemaVersion: schema}, nil
}

// Snapshot returns the current document. Unreadable or corrupt documents
// degrade to an empty snapshot and a warning; callers that write must use
// Append or Delete, which refuse to overwrite such documents.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	snap, err := s.load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger document unreadable, serving empty store",
			log.FieldBlobPath, s.path,
			log.FieldError, err,
			log.FieldOperation, log.OpRead)
		return Snapshot{SchemaVersion: SchemaVersion}
	}
	return snap
}

// List returns live entries in insertion order. It never fails: see Snapshot.
func (s *Store) List(ctx context.Context) []core.Entry {
	return s.Snapshot(ctx).Live()
}

// Append validates entries, assigns ids above every id ever used and
// persists the document conditioned on the version read. On any error
// nothing is written.
func (s *Store) Append(ctx context.Context, entries []core.Entry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, core.NewValidationError("entries", "no rows to save")
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	next := snap.MaxID()
	rows := append(make([]Row, 0, len(snap.Rows)+len(entries)), snap.Rows...)
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		next++
		e.ID = next
		e.Duplicate = false
		e.Employee = strings.TrimSpace(e.Employee)
		e.CaseNumber = strings.TrimSpace(e.CaseNumber)
		rows = append(rows, Row{Entry: e})
		ids = append(ids, next)
	}

	version, err := s.persist(ctx, "append", rows, snap.Version)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Entries appended",
		log.NewFields().
			WithEntries(entries[0].Employee, ids).
			WithBlob(s.path, version).
			WithOperation(log.OpAppend).
			ToSlice()...)
	return ids, nil
}

// Delete tombstones the live entries whose id is in ids and returns how
// many were removed. Unknown or already deleted ids are ignored.
func (s *Store) Delete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	snap, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([]Row, len(snap.Rows))
	copy(rows, snap.Rows)
	removed := 0
	for i := range rows {
		if !rows[i].Deleted && want[rows[i].ID] {
			rows[i].Deleted = true
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	version, err := s.persist(ctx, "delete", rows, snap.Version)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Entries deleted",
		log.FieldEntryIDs, ids,
		log.FieldEntryCount, removed,
		log.FieldVersion, version,
		log.FieldOperation, log.OpDelete)
	return removed, nil
}

func (s *Store) persist(ctx context.Context, op string, rows []Row, expectedVersion string) (string, error) {
	data, err := Encode(rows)
	if err != nil {
		return "", &StorageWriteError{Op: op, Path: s.path, Err: err}
	}
	version, err := s.blobs.Put(ctx, s.path, data, expectedVersion)
	if err != nil {
		return "", &StorageWriteError{Op: op, Path: s.path, Err: err}
	}
	return version, nil
}
