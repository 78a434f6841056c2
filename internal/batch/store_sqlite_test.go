package batch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiguard/internal/core"
	"piiguard/internal/storage"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: filepath.Join(t.TempDir(), "batches.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	store, err := NewSQLiteStore(st.SQLiteDB())
	require.NoError(t, err)
	return store
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	rec, err := core.ParseRecord(`{"phone":"98XXXXXX10","city":"Pune"}`)
	require.NoError(t, err)

	b := &core.Batch{
		ID:        "batch-sql-1",
		Object:    "batch",
		Source:    SourceAPI,
		Status:    core.BatchStatusInProgress,
		CreatedAt: 123,
		Summary:   core.BatchSummary{Total: 1, PII: 1, Detections: map[string]int{"phone": 1}},
		Results: []core.ClassifyResult{
			{RecordID: "r1", RedactedData: rec, IsPII: true},
		},
	}
	require.NoError(t, store.Create(ctx, b))

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, SourceAPI, got.Source)
	assert.Equal(t, 1, got.Summary.Total)
	assert.Equal(t, 1, got.Summary.Detections["phone"])
	require.Len(t, got.Results, 1)
	assert.Equal(t, []string{"phone", "city"}, got.Results[0].RedactedData.Names())

	got.Status = core.BatchStatusCompleted
	require.NoError(t, store.Update(ctx, got))

	got2, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, got2.Status)
}

func TestSQLiteStoreNotFound(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Update(ctx, &core.Batch{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.List(ctx, ListOptions{After: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreList(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	for _, b := range []*core.Batch{
		{ID: "batch-a", CreatedAt: 1, Status: core.BatchStatusCompleted},
		{ID: "batch-b", CreatedAt: 2, Status: core.BatchStatusFailed},
		{ID: "batch-c", CreatedAt: 3, Status: core.BatchStatusCompleted},
		{ID: "batch-d", CreatedAt: 3, Status: core.BatchStatusCompleted},
	} {
		require.NoError(t, store.Create(ctx, b))
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"first page", ListOptions{Limit: 2}, []string{"batch-d", "batch-c"}},
		{"after tie", ListOptions{Limit: 2, After: "batch-d"}, []string{"batch-c", "batch-b"}},
		{"after last", ListOptions{After: "batch-a"}, []string{}},
		{"by status", ListOptions{Status: core.BatchStatusCompleted}, []string{"batch-d", "batch-c", "batch-a"}},
		{"status after cursor", ListOptions{Status: core.BatchStatusCompleted, After: "batch-c"}, []string{"batch-a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := store.List(ctx, tt.opts)
			require.NoError(t, err)
			ids := make([]string, 0, len(items))
			for _, b := range items {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteStoreDeleteCreatedBefore(t *testing.T) {
	store := newSQLiteTestStore(t)
	ctx := context.Background()

	for id, ts := range map[string]int64{"a": 100, "b": 200, "c": 300} {
		require.NoError(t, store.Create(ctx, &core.Batch{ID: id, Object: "batch", CreatedAt: ts, Status: core.BatchStatusCompleted}))
	}

	n, err := store.DeleteCreatedBefore(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ID)

	n, err = store.DeleteCreatedBefore(ctx, 250)
	require.NoError(t, err)
	assert.Zero(t, n)
}
