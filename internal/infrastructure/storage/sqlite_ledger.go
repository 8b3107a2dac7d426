package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

const ledgerTable = "prior_results"

// SQLiteLedger persists processed results into a local SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

var _ ports.LedgerStore = (*SQLiteLedger)(nil)

// OpenSQLiteLedger opens (and migrates) the database at path.
func OpenSQLiteLedger(path string) (*SQLiteLedger, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			identity TEXT NOT NULL,
			date_token TEXT NOT NULL,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(identity, date_token)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll returns entries in insertion order.
func (s *SQLiteLedger) LoadAll(ctx context.Context) ([]domain.LedgerEntry, error) {
	query, args, err := sq.Select("identity", "date_token").
		From(ledgerTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.Identity, &e.Token); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return entries, nil
}

// Append inserts the entry; a duplicate is ignored.
func (s *SQLiteLedger) Append(ctx context.Context, entry domain.LedgerEntry) error {
	query, args, err := sq.Insert(ledgerTable).
		Options("OR IGNORE").
		Columns("identity", "date_token").
		Values(entry.Identity, entry.Token).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
