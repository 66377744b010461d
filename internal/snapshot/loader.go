package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"sisedash/internal/domain"
)

// ErrMissingColumn is returned when a snapshot lacks a required column.
var ErrMissingColumn = errors.New("snapshot is missing a required column")

// Column headers of a 시세 snapshot.
const (
	ColCode   = "종목코드"
	ColName   = "종목명"
	ColPrice  = "현재가"
	ColOpen   = "시가"
	ColHigh   = "고가"
	ColLow    = "저가"
	ColVolume = "거래량"
	ColPER    = "PER"
)

// Columns lists the required headers in their canonical order.
var Columns = []string{ColCode, ColName, ColPrice, ColOpen, ColHigh, ColLow, ColVolume, ColPER}

const codeWidth = 6

// Load parses the CSV snapshot at path.
func Load(path string) ([]domain.StockRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return rows, nil
}

// Read parses a CSV snapshot. Columns are located by header name, so their
// order is free and extra columns are ignored. The ticker code is kept as a
// string and zero-padded; every other required column must be numeric or
// empty (NaN). Any parse error aborts the whole read.
func Read(r io.Reader) ([]domain.StockRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	pos := make([]int, len(Columns))
	for i, col := range Columns {
		p, ok := idx[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
		pos[i] = p
	}

	var rows []domain.StockRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		field := func(i int) string {
			if pos[i] >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[pos[i]])
		}

		row := domain.StockRow{
			Code: PadCode(field(0)),
			Name: field(1),
		}
		nums := []*float64{&row.Price, &row.Open, &row.High, &row.Low, &row.Volume, &row.PER}
		for j, dst := range nums {
			v, err := parseNumber(field(j + 2))
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, Columns[j+2], err)
			}
			*dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PadCode left-pads a ticker code with zeros to six characters. Longer
// codes are returned unchanged.
func PadCode(code string) string {
	if len(code) >= codeWidth {
		return code
	}
	return strings.Repeat("0", codeWidth-len(code)) + code
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
