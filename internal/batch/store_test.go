package batch

import (
	"context"
	"strings"
	"testing"

	"piiguard/internal/core"
	"piiguard/internal/storage"
)

func TestEncodeBatchValidatesID(t *testing.T) {
	t.Run("nil batch", func(t *testing.T) {
		_, err := encodeBatch(nil)
		if err == nil {
			t.Fatal("expected error for nil batch")
		}
	})

	t.Run("empty batch id", func(t *testing.T) {
		_, err := encodeBatch(&core.Batch{})
		if err == nil {
			t.Fatal("expected error for empty batch ID")
		}
		if !strings.Contains(err.Error(), "batch ID is empty") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{5, 5},
		{MaxListLimit + 1, MaxListLimit + 1},
		{500, MaxListLimit + 1},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in); got != tt.want {
			t.Errorf("normalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCloneBatchPreservesRecordOrder(t *testing.T) {
	rec, err := core.ParseRecord(`{"z":"1","a":"2"}`)
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	src := &core.Batch{
		ID:      "batch-1",
		Results: []core.ClassifyResult{{RecordID: "r1", RedactedData: rec}},
	}

	got, err := cloneBatch(src)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	names := got.Results[0].RedactedData.Names()
	if len(names) != 2 || names[0] != "z" || names[1] != "a" {
		t.Fatalf("field order = %v, want [z a]", names)
	}
}

func TestNewMemoryType(t *testing.T) {
	res, err := New(context.Background(), storage.Config{Type: TypeMemory})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer res.Close()

	if _, ok := res.Store.(*MemoryStore); !ok {
		t.Fatalf("store = %T, want *MemoryStore", res.Store)
	}
	if res.Storage != nil {
		t.Fatal("memory store should not own a storage connection")
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(context.Background(), storage.Config{Type: "dynamodb"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
	if !strings.Contains(err.Error(), "unknown storage type") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewWithSharedStorageRequiresStorage(t *testing.T) {
	_, err := NewWithSharedStorage(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for nil shared storage")
	}
}
