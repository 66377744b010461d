package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"sisedash/internal/domain"
)

// Compile-time interface check.
var _ SnapshotArchive = (*ParquetStore)(nil)

// ParquetStore implements SnapshotArchive with one Parquet file per snapshot.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// RowRecord is the Parquet schema for a snapshot row. Seq keeps the CSV
// order; PER is NaN when the snapshot had no value.
type RowRecord struct {
	Snapshot string  `parquet:"snapshot"`
	Seq      int32   `parquet:"seq"`
	Code     string  `parquet:"code"`
	Name     string  `parquet:"name"`
	Price    float64 `parquet:"price"`
	Open     float64 `parquet:"open"`
	High     float64 `parquet:"high"`
	Low      float64 `parquet:"low"`
	Volume   float64 `parquet:"volume"`
	PER      float64 `parquet:"per"`
}

// WriteSnapshot writes rows to <DataDir>/<id>.parquet.
func (s *ParquetStore) WriteSnapshot(_ context.Context, snap domain.Snapshot, rows []domain.StockRow) (string, error) {
	records := make([]RowRecord, len(rows))
	for i, r := range rows {
		records[i] = RowRecord{
			Snapshot: snap.ID,
			Seq:      int32(i),
			Code:     r.Code,
			Name:     r.Name,
			Price:    r.Price,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Volume:   r.Volume,
			PER:      r.PER,
		}
	}
	path := s.snapshotPath(snap.ID)
	if err := writeParquetFile(path, records); err != nil {
		return "", fmt.Errorf("writing archive for %s: %w", snap.ID, err)
	}
	return path, nil
}

// ReadSnapshot reads the archived rows of id. It returns ErrNotArchived when
// no file exists for it.
func (s *ParquetStore) ReadSnapshot(_ context.Context, id string) ([]domain.StockRow, error) {
	records, err := readParquetFile[RowRecord](s.snapshotPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotArchived, id)
		}
		return nil, fmt.Errorf("reading archive for %s: %w", id, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	rows := make([]domain.StockRow, len(records))
	for i, r := range records {
		rows[i] = domain.StockRow{
			Code:   r.Code,
			Name:   r.Name,
			Price:  r.Price,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Volume: r.Volume,
			PER:    r.PER,
		}
	}
	return rows, nil
}

func (s *ParquetStore) snapshotPath(id string) string {
	return filepath.Join(s.DataDir, id+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}
