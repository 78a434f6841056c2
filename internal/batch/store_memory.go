package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"piiguard/internal/core"
)

// MemoryStore keeps batches in process memory.
// Data survives across requests but not process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*core.Batch
}

// NewMemoryStore creates an empty in-memory batch store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*core.Batch),
	}
}

// Create stores a new batch.
func (s *MemoryStore) Create(_ context.Context, batch *core.Batch) error {
	c, err := cloneBatch(batch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[c.ID]; exists {
		return fmt.Errorf("batch already exists: %s", c.ID)
	}
	s.items[c.ID] = c
	return nil
}

// Get retrieves one batch by id.
func (s *MemoryStore) Get(_ context.Context, id string) (*core.Batch, error) {
	s.mu.RLock()
	b, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBatch(b)
}

// List returns batches ordered by created_at desc, id desc.
func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]*core.Batch, error) {
	limit := normalizeLimit(opts.Limit)

	s.mu.RLock()
	all := make([]*core.Batch, 0, len(s.items))
	for _, b := range s.items {
		all = append(all, b)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt == all[j].CreatedAt {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt > all[j].CreatedAt
	})

	start := 0
	if opts.After != "" {
		idx := -1
		for i := range all {
			if all[i].ID == opts.After {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrNotFound
		}
		start = idx + 1
	}

	out := make([]*core.Batch, 0, limit)
	for _, b := range all[start:] {
		if len(out) == limit {
			break
		}
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		c, err := cloneBatch(b)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DeleteCreatedBefore removes batches created before cutoff.
func (s *MemoryStore) DeleteCreatedBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.items {
		if b.CreatedAt < cutoff {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

// Update replaces an existing batch object.
func (s *MemoryStore) Update(_ context.Context, batch *core.Batch) error {
	c, err := cloneBatch(batch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[c.ID]; !exists {
		return ErrNotFound
	}
	s.items[c.ID] = c
	return nil
}

// Close releases resources (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
