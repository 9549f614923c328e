package storage

import (
	"context"
	"path/filepath"
	"testing"

	"ammCore/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "journal.jsonl")
	journal := NewJsonlJournal(path)
	ctx := context.Background()

	if err := journal.PutOperationBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}

	first := model.OperationRecord{ID: "a", PoolID: "main", Sequence: 1, Operation: model.OpInit}
	second := model.OperationRecord{
		ID:           "b",
		PoolID:       "main",
		Sequence:     2,
		Operation:    model.OpSwap,
		Account:      "alice",
		Instructions: []model.Instruction{model.Transfer(model.Asset0, model.UserToPool, 100)},
	}
	if err := journal.PutOperationBatch(ctx, []model.OperationRecord{first}); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if err := journal.PutOperationBatch(ctx, []model.OperationRecord{second}); err != nil {
		t.Fatalf("second batch failed: %v", err)
	}

	records, err := ReadJournal(path)
	if err != nil {
		t.Fatalf("read journal failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "a" || records[1].Operation != model.OpSwap || records[1].Instructions[0].Amount != 100 {
		t.Fatalf("unexpected records: %+v", records)
	}
}
