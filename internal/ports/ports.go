package ports

import (
	"context"
	"io"

	"TestVaultAlerts/internal/domain"
)

// Authenticator establishes a portal session.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.LoginResult, error)
}

// Session enumerates clients and documents over an authenticated portal session.
type Session interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	// ListDocuments returns the client's documents newest first.
	ListDocuments(ctx context.Context, client domain.Client) ([]domain.DocumentRef, error)
	Fetch(ctx context.Context, url string, w io.Writer) error
}

// LedgerStore persists processed (identity, token) pairs.
type LedgerStore interface {
	LoadAll(ctx context.Context) ([]domain.LedgerEntry, error)
	Append(ctx context.Context, entry domain.LedgerEntry) error
}

// Classifier inspects a result PDF.
type Classifier interface {
	Classify(ctx context.Context, path string) domain.Classification
}

// Notifier delivers the alert email.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Archiver keeps an offsite copy of a newly persisted result.
type Archiver interface {
	Archive(ctx context.Context, result domain.Result) error
}
