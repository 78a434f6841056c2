package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"piiguard/internal/core"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("dataset: missing header row")

// Reader decodes input rows one at a time.
type Reader struct {
	csv      *csv.Reader
	idCols   []int
	dataCols []int
}

// NewReader reads the header row from r and resolves the configured columns.
// Columns that are absent from the header are ignored.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	return &Reader{
		csv:      cr,
		idCols:   lookup(index, opts.IDColumns),
		dataCols: lookup(index, opts.DataColumns),
	}, nil
}

func lookup(index map[string]int, names []string) []int {
	var cols []int
	for _, name := range names {
		if i, ok := index[name]; ok {
			cols = append(cols, i)
		}
	}
	return cols
}

// Next returns the next row, or io.EOF when the input is exhausted. A row
// whose JSON cannot be decoded is returned with an empty record and
// Status core.DecodeFailed, not as an error.
func (r *Reader) Next() (Row, error) {
	fields, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("read row: %w", err)
	}
	line, _ := r.csv.FieldPos(0)

	raw := firstNonEmpty(fields, r.dataCols)
	if raw == "" {
		raw = EmptyRecordJSON
	}
	rec, status, decodeErr := core.DecodeRecord(raw)

	return Row{
		Line:     line,
		RecordID: firstNonEmpty(fields, r.idCols),
		Record:   rec,
		Status:   status,
		Err:      decodeErr,
	}, nil
}

func firstNonEmpty(fields []string, cols []int) string {
	for _, i := range cols {
		if i < len(fields) && fields[i] != "" {
			return fields[i]
		}
	}
	return ""
}

// ReadAll reads every row from r.
func ReadAll(r io.Reader, opts Options) ([]Row, error) {
	dr, err := NewReader(r, opts)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for {
		row, err := dr.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
