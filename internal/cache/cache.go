// Package cache stores classification outcomes keyed by the content of the
// input record, so repeated records skip the engine. The local backend serves
// a single process; Redis shares results across instances.
package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"piiguard/internal/core"
)

// Backend names accepted in configuration.
const (
	TypeNone  = "none"
	TypeLocal = "local"
	TypeRedis = "redis"
)

// Entry is one cached outcome.
type Entry struct {
	Redacted    core.Record    `json:"redacted"`
	IsPII       bool           `json:"is_pii"`
	Detections  map[string]int `json:"detections,omitempty"`
	WeakSignals []string       `json:"weak_signals,omitempty"`
}

// Cache defines the interface for result storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Close() error
}

// Key derives the cache key for rec: the xxhash64 of scope followed by the
// compact JSON form of rec. Field order is part of the key because it is part
// of the output. scope names the classifier configuration that produced the
// entry, so differently configured instances sharing a backend never read each
// other's results.
func Key(scope string, rec core.Record) (string, error) {
	b, err := rec.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode record for cache key: %w", err)
	}
	d := xxhash.New()
	_, _ = d.WriteString(scope)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(b)
	return strconv.FormatUint(d.Sum64(), 16), nil
}

func cloneEntry(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Redacted = e.Redacted.Clone()
	if e.Detections != nil {
		c.Detections = make(map[string]int, len(e.Detections))
		for k, v := range e.Detections {
			c.Detections[k] = v
		}
	}
	if e.WeakSignals != nil {
		c.WeakSignals = append([]string(nil), e.WeakSignals...)
	}
	return &c
}
