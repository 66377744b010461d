// Package store archives snapshots as Parquet files and keeps a SQLite
// catalog of what has been archived.
package store

import (
	"context"
	"errors"
	"time"

	"sisedash/internal/domain"
)

// ErrNotArchived is returned when a snapshot has no archive entry.
var ErrNotArchived = errors.New("snapshot not archived")

// Entry describes one archived snapshot.
type Entry struct {
	ID          string    // snapshot ID, YYYYMMDD_HHMMSS
	Label       string    // display label of the snapshot
	Source      string    // CSV path the rows were read from
	ArchivePath string    // Parquet file holding the rows
	Rows        int       // number of rows archived
	ArchivedAt  time.Time // when the archive was written
}

// SnapshotArchive persists and retrieves the rows of a snapshot.
type SnapshotArchive interface {
	// WriteSnapshot stores rows for snap, replacing any previous archive, and
	// returns the path written.
	WriteSnapshot(ctx context.Context, snap domain.Snapshot, rows []domain.StockRow) (string, error)

	// ReadSnapshot returns the archived rows of a snapshot in their original
	// order.
	ReadSnapshot(ctx context.Context, id string) ([]domain.StockRow, error)
}

// Catalog records which snapshots have been archived.
type Catalog interface {
	// Record inserts or replaces the entry for e.ID.
	Record(ctx context.Context, e Entry) error

	// Get returns the entry for id, or ErrNotArchived.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns all entries, most recent snapshot first.
	List(ctx context.Context) ([]Entry, error)
}
