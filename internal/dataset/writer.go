package dataset

import (
	"encoding/csv"
	"fmt"
	"io"

	"piiguard/internal/core"
)

// Writer encodes output rows. Lines end in CRLF, matching the exports the
// input usually comes from.
type Writer struct {
	csv *csv.Writer
}

// NewWriter writes the header row to w.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write([]string{ColumnRecordID, ColumnRedactedData, ColumnIsPII}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{csv: cw}, nil
}

// Write appends one row.
func (w *Writer) Write(res Result) error {
	data, err := FormatRecord(res.Redacted)
	if err != nil {
		return fmt.Errorf("format record %q: %w", res.RecordID, err)
	}
	return w.csv.Write([]string{res.RecordID, data, core.VerdictString(res.IsPII)})
}

// Flush writes any buffered data and reports the first write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// WriteAll writes the header and every result to w.
func WriteAll(w io.Writer, results []Result) error {
	dw, err := NewWriter(w)
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := dw.Write(res); err != nil {
			return err
		}
	}
	return dw.Flush()
}
