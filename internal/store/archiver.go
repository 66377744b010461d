package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sisedash/internal/domain"
	"sisedash/internal/snapshot"
)

// Archiver copies CSV snapshots into a SnapshotArchive and records them in a
// Catalog.
type Archiver struct {
	Archive SnapshotArchive
	Catalog Catalog
	Log     *slog.Logger

	now func() time.Time
}

// NewArchiver creates an Archiver. A nil logger discards output.
func NewArchiver(archive SnapshotArchive, catalog Catalog, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Archiver{Archive: archive, Catalog: catalog, Log: log, now: time.Now}
}

// ArchiveSnapshot loads snap from its CSV file, writes it to the archive and
// records the result.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, snap domain.Snapshot) (*Entry, error) {
	rows, err := snapshot.Load(snap.Path)
	if err != nil {
		return nil, err
	}
	path, err := a.Archive.WriteSnapshot(ctx, snap, rows)
	if err != nil {
		return nil, err
	}
	e := Entry{
		ID:          snap.ID,
		Label:       snap.Label,
		Source:      snap.Path,
		ArchivePath: path,
		Rows:        len(rows),
		ArchivedAt:  a.now(),
	}
	if err := a.Catalog.Record(ctx, e); err != nil {
		return nil, err
	}
	a.Log.Info("snapshot archived", "id", snap.ID, "rows", len(rows), "path", path)
	return &e, nil
}

// ArchiveAll archives every snapshot in snaps, stopping at the first error.
func (a *Archiver) ArchiveAll(ctx context.Context, snaps []domain.Snapshot) (int, error) {
	for i, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := a.ArchiveSnapshot(ctx, snap); err != nil {
			return i, fmt.Errorf("archiving %s: %w", snap.ID, err)
		}
	}
	return len(snaps), nil
}
