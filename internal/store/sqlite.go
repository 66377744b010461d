package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Catalog = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	label        TEXT NOT NULL,
	source       TEXT NOT NULL,
	archive_path TEXT NOT NULL,
	rows         INTEGER NOT NULL,
	archived_at  INTEGER NOT NULL
)`

// SQLiteStore implements Catalog backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and creates
// the catalog table if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record inserts or replaces the catalog entry for e.ID.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (id, label, source, archive_path, rows, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Label, e.Source, e.ArchivePath, e.Rows, e.ArchivedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.ID, err)
	}
	return nil
}

// Get returns the entry for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, source, archive_path, rows, archived_at FROM snapshots WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotArchived, id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns all entries ordered by snapshot ID, most recent first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, source, archive_path, rows, archived_at FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var archivedAt int64
	if err := sc.Scan(&e.ID, &e.Label, &e.Source, &e.ArchivePath, &e.Rows, &archivedAt); err != nil {
		return Entry{}, err
	}
	e.ArchivedAt = time.UnixMilli(archivedAt)
	return e, nil
}
