package core

import "strings"

// DecodeStatus reports how DecodeRecord obtained its result.
type DecodeStatus int

const (
	// DecodeParsed means the text was a valid JSON object.
	DecodeParsed DecodeStatus = iota
	// DecodeRepaired means the text parsed after quote repair.
	DecodeRepaired
	// DecodeFailed means the text could not be decoded; the record is empty.
	DecodeFailed
)

func (s DecodeStatus) String() string {
	switch s {
	case DecodeParsed:
		return "parsed"
	case DecodeRepaired:
		return "repaired"
	default:
		return "failed"
	}
}

// RepairQuotes fixes the quoting damage that spreadsheet exports commonly
// leave in embedded JSON: doubled single quotes and doubled double quotes
// both become a single double quote.
func RepairQuotes(raw string) string {
	fixed := strings.ReplaceAll(raw, "''", `"`)
	return strings.ReplaceAll(fixed, `""`, `"`)
}

// DecodeRecord decodes embedded record JSON. Text that does not parse is
// retried once after RepairQuotes; if that fails too the result is an empty,
// non-nil record. The error is the one from the last attempt.
func DecodeRecord(raw string) (Record, DecodeStatus, error) {
	rec, err := ParseRecord(raw)
	if err == nil {
		return rec, DecodeParsed, nil
	}
	rec, err = ParseRecord(RepairQuotes(raw))
	if err == nil {
		return rec, DecodeRepaired, nil
	}
	return Record{}, DecodeFailed, err
}
