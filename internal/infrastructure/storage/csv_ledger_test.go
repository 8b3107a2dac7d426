package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"TestVaultAlerts/internal/domain"
)

func TestCSVLedgerMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewCSVLedger(filepath.Join(t.TempDir(), "priorTests.csv"), nil)
	entries, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %+v", entries)
	}
}

func TestCSVLedgerAppendAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "priorTests.csv")
	store := NewCSVLedger(path, nil)

	want := []domain.LedgerEntry{
		{Identity: "Jane Doe", Token: "06102025"},
		{Identity: "O'Neil, Pat", Token: "06012025"},
	}
	for _, e := range want {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	got, err := NewCSVLedger(path, nil).LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(raw) != "Jane Doe,06102025\n\"O'Neil, Pat\",06012025\n" {
		t.Fatalf("unexpected file contents: %q", raw)
	}
}

func TestCSVLedgerRepairsTruncatedTail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "priorTests.csv")
	if err := os.WriteFile(path, []byte("Jane Doe,06102025\nJohn Ro"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := NewCSVLedger(path, nil)
	if err := store.Append(ctx, domain.LedgerEntry{Identity: "John Roe", Token: "06032025"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	entries, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Identity != "Jane Doe" || entries[1].Identity != "John Roe" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
