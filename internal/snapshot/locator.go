// Package snapshot discovers, loads and filters the timestamped 시세 CSV
// snapshots the dashboard is built from.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sisedash/internal/domain"
)

var (
	// ErrNotFound is returned when no usable snapshot exists.
	ErrNotFound = errors.New("snapshot not found")

	// ErrBadFileName is returned when a file name lacks a parseable
	// _YYYYMMDD_HHMMSS.csv suffix.
	ErrBadFileName = errors.New("snapshot file name has no timestamp suffix")
)

const (
	idLayout    = "20060102_150405"
	labelLayout = "2006년 01월 02일 15:04:05"
)

// Locator lists the snapshots found in a single directory.
type Locator struct {
	dir string
	log *slog.Logger
}

// NewLocator creates a Locator for dir. A nil logger discards output.
func NewLocator(dir string, log *slog.Logger) *Locator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Locator{dir: dir, log: log}
}

// Dir returns the scanned directory.
func (l *Locator) Dir() string { return l.dir }

// List returns the snapshots in the directory, most recent first. It fails
// with ErrNotFound if the directory holds no .csv files at all. Files whose
// names do not carry a valid timestamp suffix are skipped, so the result may
// be empty without an error.
func (l *Locator) List() ([]domain.Snapshot, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNotFound, l.dir)
		}
		return nil, fmt.Errorf("reading snapshot dir: %w", err)
	}

	var csvCount int
	snaps := make([]domain.Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		csvCount++
		snap, err := ParseFileName(filepath.Join(l.dir, e.Name()))
		if err != nil {
			l.log.Debug("skipping snapshot", "file", e.Name(), "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	if csvCount == 0 {
		return nil, fmt.Errorf("%w: no CSV files in %s", ErrNotFound, l.dir)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if snaps[i].ID != snaps[j].ID {
			return snaps[i].ID > snaps[j].ID
		}
		return snaps[i].Path < snaps[j].Path
	})
	return snaps, nil
}

// Latest returns the most recent snapshot.
func (l *Locator) Latest() (domain.Snapshot, error) {
	snaps, err := l.List()
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return domain.Snapshot{}, fmt.Errorf("%w: no file in %s has a timestamp suffix", ErrNotFound, l.dir)
	}
	return snaps[0], nil
}

// Find returns the snapshot with the given ID.
func (l *Locator) Find(id string) (domain.Snapshot, error) {
	snaps, err := l.List()
	if err != nil {
		return domain.Snapshot{}, err
	}
	for _, s := range snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ParseFileName derives a Snapshot from a path ending in
// _YYYYMMDD_HHMMSS.csv. The date and time are the last two
// underscore-delimited fields of the base name.
func ParseFileName(path string) (domain.Snapshot, error) {
	base := filepath.Base(path)
	stem, ok := strings.CutSuffix(base, ".csv")
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}
	date, clock := parts[len(parts)-2], parts[len(parts)-1]
	if len(date) != 8 || len(clock) != 6 {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}

	id := date + "_" + clock
	t, err := time.ParseInLocation(idLayout, id, time.Local)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrBadFileName, base, err)
	}

	return domain.Snapshot{
		ID:    id,
		Label: t.Format(labelLayout),
		Path:  path,
		Time:  t,
	}, nil
}

// ValidID reports whether id has the YYYYMMDD_HHMMSS form of a snapshot ID.
func ValidID(id string) bool {
	_, err := time.Parse(idLayout, id)
	return err == nil && len(id) == len(idLayout)
}
