// Package core provides the record model and shared types for piiguard.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when record text is not valid JSON.
	ErrInvalidJSON = errors.New("record: invalid JSON")
	// ErrNotObject is returned when record text is valid JSON but not an object.
	ErrNotObject = errors.New("record: JSON value is not an object")
)

// Field is one named value of a record.
//
// Value holds one of: string, json.Number, bool, nil, or json.RawMessage for
// nested JSON that is carried through untouched.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered mapping from field name to scalar value.
// Field names are unique; order is the order fields were first seen.
type Record []Field

// RedactedRecord has the same shape as the Record it was produced from, with
// masked strings substituted in place.
type RedactedRecord = Record

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// With returns r with name set to value. An existing field keeps its position.
func (r Record) With(name string, value any) Record {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Name: name, Value: value})
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Clone returns a copy that shares no backing array with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// ParseRecord decodes a JSON object into a Record, preserving key order.
// Duplicate keys keep the first position and the last value.
func ParseRecord(raw string) (Record, error) {
	if !gjson.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	res := gjson.Parse(raw)
	if !res.IsObject() {
		return nil, ErrNotObject
	}
	rec := make(Record, 0, 8)
	res.ForEach(func(key, value gjson.Result) bool {
		rec = rec.With(key.String(), scalarOf(value))
		return true
	})
	return rec, nil
}

func scalarOf(v gjson.Result) any {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		return json.RawMessage(v.Raw)
	}
}

// MarshalJSON renders the record as a compact JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	return r.AppendJSON(nil, ",", ":")
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (r *Record) UnmarshalJSON(b []byte) error {
	rec, err := ParseRecord(string(b))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// AppendJSON appends the record as a JSON object to dst using the given
// separators between items and between a key and its value. Non-ASCII text and
// HTML characters are written unescaped.
func (r Record) AppendJSON(dst []byte, itemSep, keySep string) ([]byte, error) {
	dst = append(dst, '{')
	for i, f := range r {
		if i > 0 {
			dst = append(dst, itemSep...)
		}
		k, err := encodeValue(f.Name)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", f.Name, err)
		}
		dst = append(dst, k...)
		dst = append(dst, keySep...)
		v, err := encodeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Name, err)
		}
		dst = append(dst, v...)
	}
	return append(dst, '}'), nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
