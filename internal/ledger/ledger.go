package ledger

import (
	"context"
	"fmt"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

// Ledger is the in-memory snapshot of processed results backed by a durable store.
type Ledger struct {
	store   ports.LedgerStore
	seen    map[domain.LedgerEntry]struct{}
	entries []domain.LedgerEntry
}

// Open loads every entry from store.
func Open(ctx context.Context, store ports.LedgerStore) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is not configured")
	}
	entries, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	l := &Ledger{store: store, seen: make(map[domain.LedgerEntry]struct{}, len(entries))}
	for _, e := range entries {
		if _, ok := l.seen[e]; ok {
			continue
		}
		l.seen[e] = struct{}{}
		l.entries = append(l.entries, e)
	}
	return l, nil
}

// Contains reports whether (identity, token) was already processed.
func (l *Ledger) Contains(identity, token string) bool {
	_, ok := l.seen[domain.LedgerEntry{Identity: identity, Token: token}]
	return ok
}

// Append durably records (identity, token). The snapshot only changes once the store accepted the write.
func (l *Ledger) Append(ctx context.Context, identity, token string) error {
	entry := domain.LedgerEntry{Identity: identity, Token: token}
	if _, ok := l.seen[entry]; ok {
		return nil
	}
	if err := l.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append ledger entry %s/%s: %w", identity, token, err)
	}
	l.seen[entry] = struct{}{}
	l.entries = append(l.entries, entry)
	return nil
}

// Len returns the number of distinct entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of all entries in load/append order.
func (l *Ledger) Entries() []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
