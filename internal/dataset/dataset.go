// Package dataset reads and writes the CSV files piiguard scans.
//
// An input file has a header row, a record identifier column and a column
// holding each record as embedded JSON. The output file has the columns
// record_id, redacted_data_json and is_pii.
package dataset

import (
	"piiguard/internal/core"
)

// Output column names.
const (
	ColumnRecordID     = "record_id"
	ColumnRedactedData = "redacted_data_json"
	ColumnIsPII        = "is_pii"
)

// EmptyRecordJSON stands in for a row whose data column is missing or blank.
const EmptyRecordJSON = "{}"

// Options selects input columns. For each row the first non-empty value among
// the listed columns is used.
type Options struct {
	IDColumns   []string `yaml:"id_columns"`
	DataColumns []string `yaml:"data_columns"`
}

// DefaultOptions returns the column names produced by the usual exports.
func DefaultOptions() Options {
	return Options{
		IDColumns:   []string{"record_id", "Record_ID", "id"},
		DataColumns: []string{"Data_json", "data_json"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.IDColumns) == 0 {
		o.IDColumns = d.IDColumns
	}
	if len(o.DataColumns) == 0 {
		o.DataColumns = d.DataColumns
	}
	return o
}

// Row is one decoded input row.
type Row struct {
	// Line is the input line the row starts on, counting the header as line 1.
	Line     int
	RecordID string
	Record   core.Record
	Status   core.DecodeStatus
	// Err is the decode error when Status is core.DecodeFailed.
	Err error
}

// Result is one output row.
type Result struct {
	RecordID string
	Redacted core.RedactedRecord
	IsPII    bool
}

// FormatRecord renders a record the way the output column stores it: ", "
// between items, ": " between key and value, non-ASCII text unescaped.
func FormatRecord(rec core.Record) (string, error) {
	b, err := rec.AppendJSON(nil, ", ", ": ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
