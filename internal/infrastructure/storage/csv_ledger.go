package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

// CSVLedger keeps processed results as two-column rows without a header.
type CSVLedger struct {
	path   string
	logger *slog.Logger
}

var _ ports.LedgerStore = (*CSVLedger)(nil)

// NewCSVLedger binds the store to a file; the file is created on first append.
func NewCSVLedger(path string, logger *slog.Logger) *CSVLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVLedger{path: path, logger: logger}
}

// LoadAll reads every well-formed row. A missing file is an empty ledger.
func (c *CSVLedger) LoadAll(ctx context.Context) ([]domain.LedgerEntry, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var entries []domain.LedgerEntry
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			c.logger.Warn("skip malformed ledger row", "path", c.path, "line", parseErr.Line, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			c.logger.Warn("skip incomplete ledger row", "path", c.path, "line", line)
			continue
		}
		entries = append(entries, domain.LedgerEntry{Identity: row[0], Token: row[1]})
	}

	return entries, nil
}

// Append writes one row with a single write followed by fsync.
func (c *CSVLedger) Append(_ context.Context, entry domain.LedgerEntry) error {
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	f, err := os.OpenFile(c.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	terminated, err := endsWithNewline(f)
	if err != nil {
		return fmt.Errorf("inspect ledger tail: %w", err)
	}
	if !terminated {
		buf.WriteByte('\n')
	}

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{entry.Identity, entry.Token}); err != nil {
		return fmt.Errorf("encode ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode ledger row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

// endsWithNewline reports true for an empty file.
func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}
