package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/layout"
	"TestVaultAlerts/internal/ledger"
	"TestVaultAlerts/internal/ports"
)

// PipelineDeps wires the driven adapters into the discovery pipeline.
type PipelineDeps struct {
	Session  ports.Session
	Ledger   *ledger.Ledger
	Archiver ports.Archiver
	BaseDir  string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Pipeline finds, downloads and records results that are not yet in the ledger.
type Pipeline struct {
	session  ports.Session
	ledger   *ledger.Ledger
	archiver ports.Archiver
	baseDir  string
	logger   *slog.Logger
	now      func() time.Time
}

// Stats summarises one discovery run.
type Stats struct {
	Clients        int
	Documents      int
	Skipped        int
	ClientFailures int
}

// Outcome is what a discovery run produced.
type Outcome struct {
	Results  *domain.ResultSet
	Recorded []domain.LedgerEntry
	DayDir   string
	Stats    Stats
}

// NewPipeline constructs the discovery component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		session:  deps.Session,
		ledger:   deps.Ledger,
		archiver: deps.Archiver,
		baseDir:  deps.BaseDir,
		logger:   logger,
		now:      now,
	}
}

// Discover walks every client's documents newest first. The scan of a client stops at the
// first document already in the ledger, so listings must be ordered newest first.
func (p *Pipeline) Discover(ctx context.Context) (Outcome, error) {
	if p.session == nil || p.ledger == nil {
		return Outcome{}, fmt.Errorf("discovery pipeline is not configured")
	}

	today := p.now()
	out := Outcome{Results: domain.NewResultSet(), DayDir: layout.DayDir(p.baseDir, today)}

	clients, err := p.session.ListClients(ctx)
	if err != nil {
		return out, fmt.Errorf("list clients: %w", err)
	}
	p.logger.Info("clients found", "count", len(clients))

	for _, client := range clients {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Stats.Clients++
		if err := p.scanClient(ctx, client, today, &out); err != nil {
			out.Stats.ClientFailures++
			p.logger.Warn("no results for client", "client", client.FullName(), "error", err)
		}
	}

	p.logger.Info("discovery finished",
		"clients", out.Stats.Clients,
		"documents", out.Stats.Documents,
		"new_results", out.Results.Len(),
		"skipped", out.Stats.Skipped,
		"client_failures", out.Stats.ClientFailures,
	)
	return out, nil
}

func (p *Pipeline) scanClient(ctx context.Context, client domain.Client, today time.Time, out *Outcome) error {
	name := client.FullName()
	p.logger.Debug("checking results", "client", name)

	docs, err := p.session.ListDocuments(ctx, client)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for _, doc := range docs {
		out.Stats.Documents++

		token, err := layout.ParseDateToken(doc.Title)
		if err != nil {
			out.Stats.Skipped++
			p.logger.Warn("no date found, skipping", "client", name, "title", doc.Title, "error", err)
			continue
		}

		if p.ledger.Contains(name, token.Raw) {
			p.logger.Debug("already recorded, ending search", "client", name, "date", token.Formatted())
			break
		}

		path, err := layout.Prepare(p.baseDir, today, client.First, client.Last, token.Date)
		if err != nil {
			return err
		}
		if err := p.download(ctx, doc.URL, path); err != nil {
			return fmt.Errorf("download %q: %w", doc.Title, err)
		}

		result := domain.Result{
			Path:           path,
			ClientName:     name,
			CollectionDate: token.Formatted(),
			DownloadDate:   today.Format(layout.DayFormat),
		}
		out.Results.Add(result)
		p.logger.Info("new result", "client", name, "date", result.CollectionDate, "path", path)

		if err := p.ledger.Append(ctx, name, token.Raw); err != nil {
			return err
		}
		out.Recorded = append(out.Recorded, domain.LedgerEntry{Identity: name, Token: token.Raw})

		if p.archiver != nil {
			if err := p.archiver.Archive(ctx, result); err != nil {
				p.logger.Warn("archive failed", "client", name, "path", path, "error", err)
			}
		}
	}

	return nil
}

// download streams into a sibling .part file and renames it into place once complete.
func (p *Pipeline) download(ctx context.Context, url, path string) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if err := p.session.Fetch(ctx, url, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
