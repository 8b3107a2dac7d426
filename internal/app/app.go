package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"TestVaultAlerts/internal/classifier"
	"TestVaultAlerts/internal/config"
	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/infrastructure/archive"
	"TestVaultAlerts/internal/infrastructure/pdftext"
	"TestVaultAlerts/internal/infrastructure/portal"
	"TestVaultAlerts/internal/infrastructure/report"
	"TestVaultAlerts/internal/infrastructure/smtp"
	"TestVaultAlerts/internal/infrastructure/storage"
	"TestVaultAlerts/internal/ledger"
	"TestVaultAlerts/internal/logging"
	"TestVaultAlerts/internal/notification"
	"TestVaultAlerts/internal/ports"
	"TestVaultAlerts/internal/usecase"
)

// Options are the per-invocation switches from the command line.
type Options struct {
	ResetConfig    bool
	RescanDir      string
	NonInteractive bool
}

// ErrIncompatibleOptions reports command-line switches that cannot be combined.
var ErrIncompatibleOptions = errors.New("incompatible options")

// Validate rejects switch combinations where one would be silently ignored.
func (o Options) Validate() error {
	if o.ResetConfig && o.RescanDir != "" {
		return fmt.Errorf("%w: -reset-config has no effect with -rescan", ErrIncompatibleOptions)
	}
	return nil
}

// PortalClient is an authenticated portal session.
type PortalClient interface {
	ports.Authenticator
	ports.Session
}

// Application wires settings and the configuration record to the alert run.
type Application struct {
	cfg    config.Config
	opts   Options
	base   *slog.Logger
	logger *slog.Logger
	out    io.Writer
	now    func() time.Time

	records    *config.RecordStore
	prompter   config.Prompter
	newPortal  func(clientsURL string) (PortalClient, error)
	newMailer  func(cfg smtp.Config) (ports.Notifier, error)
	classifier ports.Classifier
}

// New builds a runnable application instance.
func New(cfg config.Config, opts Options, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{
		cfg:     cfg,
		opts:    opts,
		base:    baseLogger,
		logger:  baseLogger,
		out:     os.Stdout,
		now:     time.Now,
		records: config.NewRecordStore(cfg.RecordPath, baseLogger.With("component", "config")),
	}
	if !opts.NonInteractive && config.Interactive() {
		a.prompter = config.NewTerminalPrompter()
	}
	a.newPortal = func(clientsURL string) (PortalClient, error) {
		return portal.New(clientsURL, portal.Options{
			UserAgent:    cfg.Portal.UserAgent,
			LoginTimeout: cfg.Portal.LoginTimeout,
		}, baseLogger.With("component", "portal"))
	}
	a.newMailer = func(sc smtp.Config) (ports.Notifier, error) {
		return smtp.NewNotifier(sc, baseLogger.With("component", "smtp"))
	}
	a.classifier = classifier.New(
		pdftext.NewExtractor(pdftext.Config{
			Pdftotext:   cfg.Classifier.Pdftotext,
			Pdftoppm:    cfg.Classifier.Pdftoppm,
			Tesseract:   cfg.Classifier.Tesseract,
			Language:    cfg.Classifier.Language,
			DPI:         cfg.Classifier.DPI,
			OCRDisabled: !cfg.Classifier.OCREnabled,
		}, baseLogger.With("component", "pdftext")),
		cfg.Classifier.Policy(),
		cfg.Classifier.MinChars,
		baseLogger.With("component", "classifier"),
	)
	return a
}

// Run performs one alert run, or a folder rescan when Options.RescanDir is set.
func (a *Application) Run(ctx context.Context) error {
	a.logger = a.base.With("run_id", uuid.NewString())
	start := a.now()

	if err := a.opts.Validate(); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if a.opts.RescanDir != "" {
		return a.rescan(ctx, a.opts.RescanDir)
	}

	rec, err := a.loadRecord()
	if err != nil {
		return err
	}
	if !rec.RememberCredentials() {
		defer a.forgetSecrets()
	}

	mailer, err := a.newMailer(smtp.Config{
		Host:     a.cfg.SMTP.Host,
		Port:     a.cfg.SMTP.Port,
		Username: rec.SMTPUser,
		Password: rec.SMTPPass,
		To:       a.cfg.SMTP.Recipient,
	})
	if err != nil {
		return fmt.Errorf("email settings: %w", err)
	}

	if err := os.MkdirAll(rec.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	session, err := a.newPortal(rec.ClientsURL)
	if err != nil {
		return fmt.Errorf("portal: %w", err)
	}
	login, err := session.Login(ctx, rec.PortalUser, rec.PortalPass)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !login.OK {
		return fmt.Errorf("%w: %s", domain.ErrLoginFailed, login.Reason)
	}

	store, closeStore, err := a.openLedgerStore()
	if err != nil {
		return err
	}
	defer closeStore()

	l, err := ledger.Open(ctx, store)
	if err != nil {
		return err
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Session:  session,
		Ledger:   l,
		Archiver: a.archiver(ctx),
		BaseDir:  rec.DownloadDir,
		Logger:   a.logger.With("component", "pipeline"),
		Now:      a.now,
	})
	outcome, err := pipeline.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover results: %w", err)
	}

	if outcome.Results.Len() == 0 {
		a.logger.Info("no new results were found, no email sent",
			"clients", outcome.Stats.Clients,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	results := outcome.Results.Items()
	triaged := usecase.Triage(ctx, a.classifier, results)

	if a.cfg.Report.Workbook {
		if _, err := report.WriteWorkbook(outcome.DayDir, triaged.All, a.logger.With("component", "report")); err != nil {
			a.logger.Warn("summary workbook not written", "error", err)
		}
	}

	subject, body := notification.Format(results, triaged.Positives, triaged.Unreadables, outcome.DayDir)
	if err := mailer.Send(ctx, subject, body); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	a.logger.Info("run finished",
		"clients", outcome.Stats.Clients,
		"documents", outcome.Stats.Documents,
		"new_results", len(results),
		"positives", len(triaged.Positives),
		"unreadable", len(triaged.Unreadables),
		"client_failures", outcome.Stats.ClientFailures,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// loadRecord resets, completes and saves the configuration record. SMTP values supplied by the
// environment are used for this run but not written back.
func (a *Application) loadRecord() (config.Record, error) {
	if a.opts.ResetConfig {
		if err := a.records.Reset(); err != nil {
			return config.Record{}, err
		}
		a.logger.Info("saved configuration reset", "path", a.records.Path())
	}

	stored, err := a.records.Load()
	if err != nil {
		return config.Record{}, err
	}

	rec := stored
	rec.ApplyEnv()
	changed, err := config.Complete(&rec, a.prompter)
	if err != nil {
		return config.Record{}, err
	}
	if changed {
		toSave := rec
		if os.Getenv("SMTP_USER") != "" {
			toSave.SMTPUser = stored.SMTPUser
		}
		if os.Getenv("SMTP_PASS") != "" {
			toSave.SMTPPass = stored.SMTPPass
		}
		if err := a.records.Save(toSave); err != nil {
			return config.Record{}, err
		}
		a.logger.Info("configuration saved", "path", a.records.Path())
	}
	return rec, nil
}

func (a *Application) forgetSecrets() {
	rec, err := a.records.Load()
	if err != nil {
		a.logger.Warn("could not forget credentials", "error", err)
		return
	}
	rec.ForgetSecrets()
	if err := a.records.Save(rec); err != nil {
		a.logger.Warn("could not forget credentials", "error", err)
		return
	}
	a.logger.Debug("stored passwords removed")
}

func (a *Application) openLedgerStore() (ports.LedgerStore, func(), error) {
	logger := a.logger.With("component", "ledger")
	if a.cfg.Ledger.Driver == config.LedgerSQLite {
		if err := os.MkdirAll(filepath.Dir(a.cfg.Ledger.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create ledger dir: %w", err)
		}
		db, err := storage.OpenSQLiteLedger(a.cfg.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn("close ledger", "error", err)
			}
		}, nil
	}
	return storage.NewCSVLedger(a.cfg.Ledger.Path, logger), func() {}, nil
}

func (a *Application) archiver(ctx context.Context) ports.Archiver {
	ac := a.cfg.Archive
	if ac.Bucket == "" {
		return nil
	}
	arch, err := archive.NewS3Archiver(ctx, archive.Config{
		Bucket:       ac.Bucket,
		Prefix:       ac.Prefix,
		Region:       ac.Region,
		Profile:      ac.Profile,
		UsePathStyle: ac.UsePathStyle,
	})
	if err != nil {
		a.logger.Warn("archive disabled", "bucket", ac.Bucket, "error", err)
		return nil
	}
	return arch
}
