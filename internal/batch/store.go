// Package batch runs classification over sets of records and persists each
// run so it can be listed and fetched later.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"piiguard/internal/core"
)

// ErrNotFound indicates a requested batch (or list cursor) was not found.
var ErrNotFound = errors.New("batch not found")

// List limits. Handlers ask for one extra row to learn whether more exist.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions selects a page of batches ordered newest first.
type ListOptions struct {
	Limit int
	// After is the id of the last batch of the previous page.
	After string
	// Status restricts the page to one status; empty matches all.
	Status string
}

// Store defines persistence operations for batch runs.
type Store interface {
	Create(ctx context.Context, batch *core.Batch) error
	Get(ctx context.Context, id string) (*core.Batch, error)
	List(ctx context.Context, opts ListOptions) ([]*core.Batch, error)
	// DeleteCreatedBefore removes batches created before the Unix time
	// cutoff and reports how many were removed.
	DeleteCreatedBefore(ctx context.Context, cutoff int64) (int64, error)
	Update(ctx context.Context, batch *core.Batch) error
	Close() error
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit+1:
		return MaxListLimit + 1
	default:
		return limit
	}
}

func encodeBatch(batch *core.Batch) ([]byte, error) {
	if batch == nil {
		return nil, errors.New("batch is nil")
	}
	if batch.ID == "" {
		return nil, errors.New("batch ID is empty")
	}
	b, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	return b, nil
}

func decodeBatch(raw []byte) (*core.Batch, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty batch payload")
	}
	var batch core.Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}
	return &batch, nil
}

func cloneBatch(src *core.Batch) (*core.Batch, error) {
	raw, err := encodeBatch(src)
	if err != nil {
		return nil, err
	}
	return decodeBatch(raw)
}
