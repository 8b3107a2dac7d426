package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TestVaultAlerts/internal/config"
	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/infrastructure/smtp"
	"TestVaultAlerts/internal/logging"
	"TestVaultAlerts/internal/notification"
	"TestVaultAlerts/internal/ports"
)

type fakePortal struct {
	login   domain.LoginResult
	clients []domain.Client
	docs    map[string][]domain.DocumentRef
	logins  int
}

func (f *fakePortal) Login(context.Context, string, string) (domain.LoginResult, error) {
	f.logins++
	return f.login, nil
}

func (f *fakePortal) ListClients(context.Context) ([]domain.Client, error) { return f.clients, nil }

func (f *fakePortal) ListDocuments(_ context.Context, c domain.Client) ([]domain.DocumentRef, error) {
	return f.docs[c.ID], nil
}

func (f *fakePortal) Fetch(_ context.Context, url string, w io.Writer) error {
	_, err := io.WriteString(w, "%PDF "+url)
	return err
}

type sentMail struct{ subject, body string }

type fakeMailer struct{ sent []sentMail }

func (f *fakeMailer) Send(_ context.Context, subject, body string) error {
	f.sent = append(f.sent, sentMail{subject, body})
	return nil
}

type positiveFor string

func (p positiveFor) Classify(_ context.Context, path string) domain.Classification {
	if strings.Contains(filepath.Base(path), string(p)) {
		return domain.Classification{Verdict: domain.VerdictPositive, Method: domain.MethodTextLayer}
	}
	return domain.Classification{Verdict: domain.VerdictNegative, Method: domain.MethodTextLayer}
}

type harness struct {
	app     *Application
	portal  *fakePortal
	mailer  *fakeMailer
	cfg     config.Config
	records *config.RecordStore
	dataDir string
}

func newHarness(t *testing.T, remember bool) *harness {
	t.Helper()
	t.Setenv("TESTVAULT_ALERTS_SETTINGS", "")
	t.Setenv("TESTVAULT_LEDGER_PATH", "")
	t.Setenv("SMTP_USER", "")
	t.Setenv("SMTP_PASS", "")
	t.Setenv("SEND_TO", "")

	root := t.TempDir()
	cfg := config.Load("")
	cfg.Ledger.Path = filepath.Join(root, "state", "priorTests.csv")
	cfg.RecordPath = filepath.Join(root, "state", "config.json")

	dataDir := filepath.Join(root, "results")
	records := config.NewRecordStore(cfg.RecordPath, nil)
	if err := records.Save(config.Record{
		PortalUser:  "ops@example.com",
		PortalPass:  "secret",
		ClientsURL:  "https://portal.example/person/list/",
		DownloadDir: dataDir,
		SMTPUser:    "alerts@example.com",
		SMTPPass:    "app-pass",
		Remember:    &remember,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	fp := &fakePortal{
		login:   domain.LoginResult{OK: true},
		clients: []domain.Client{{ID: "42", First: "Jane", Last: "Doe"}, {ID: "77", First: "John", Last: "Roe"}},
		docs: map[string][]domain.DocumentRef{
			"42": {{URL: "/dl/9", Title: "UA 06102025.pdf"}},
			"77": {{URL: "/dl/5", Title: "UA 06092025.pdf"}},
		},
	}
	mailer := &fakeMailer{}

	logger := logging.NewWithWriter(io.Discard, "error", "text")
	a := New(cfg, Options{NonInteractive: true}, logger)
	a.now = func() time.Time { return time.Date(2025, time.June, 12, 8, 0, 0, 0, time.UTC) }
	a.newPortal = func(string) (PortalClient, error) { return fp, nil }
	a.newMailer = func(smtp.Config) (ports.Notifier, error) { return mailer, nil }
	a.classifier = positiveFor("JohnR")
	a.out = &bytes.Buffer{}

	return &harness{app: a, portal: fp, mailer: mailer, cfg: cfg, records: records, dataDir: dataDir}
}

func TestRunSendsAlertOnce(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	if err := h.app.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(h.mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(h.mailer.sent))
	}
	mail := h.mailer.sent[0]
	if mail.subject != notification.SubjectPositive {
		t.Fatalf("unexpected subject %q", mail.subject)
	}
	for _, want := range []string{
		"Found 2 new results.",
		"Jane Doe on 2025-06-10",
		"POSITIVE UA results:\nJohn Roe on 2025-06-09\n",
		"Check " + filepath.Join(h.dataDir, "2025-06-12") + " for details.",
	} {
		if !strings.Contains(mail.body, want) {
			t.Fatalf("body missing %q:\n%s", want, mail.body)
		}
	}

	if _, err := os.Stat(filepath.Join(h.dataDir, "2025-06-12", "JaneD0610.pdf")); err != nil {
		t.Fatalf("result not persisted: %v", err)
	}
	ledgerRaw, err := os.ReadFile(h.cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if string(ledgerRaw) != "Jane Doe,06102025\nJohn Roe,06092025\n" {
		t.Fatalf("unexpected ledger %q", ledgerRaw)
	}

	if err := h.app.Run(ctx); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if len(h.mailer.sent) != 1 {
		t.Fatalf("second run must not send email, sent=%d", len(h.mailer.sent))
	}
}

func TestRunLoginFailureIsFatal(t *testing.T) {
	h := newHarness(t, true)
	h.portal.login = domain.LoginResult{OK: false, Reason: "bad password"}

	err := h.app.Run(context.Background())
	if !errors.Is(err, domain.ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if len(h.mailer.sent) != 0 {
		t.Fatalf("no email expected after failed login")
	}
}

func TestRunRejectsBadRecipientBeforeLogin(t *testing.T) {
	h := newHarness(t, true)
	h.app.cfg.SMTP.Recipient = "not-an-address"
	h.app.newMailer = func(sc smtp.Config) (ports.Notifier, error) {
		return smtp.NewNotifier(sc, nil)
	}

	err := h.app.Run(context.Background())
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if h.portal.logins != 0 {
		t.Fatalf("portal must not be contacted with a bad address")
	}
}

func TestRunForgetsSecretsWhenNotRemembered(t *testing.T) {
	h := newHarness(t, false)

	if err := h.app.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	rec, err := h.records.Load()
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.PortalPass != "" || rec.SMTPPass != "" {
		t.Fatalf("passwords must be forgotten: %+v", rec)
	}
	if rec.PortalUser != "ops@example.com" {
		t.Fatalf("non-secret values must survive: %+v", rec)
	}
}

func TestRunMissingRecordNonInteractive(t *testing.T) {
	h := newHarness(t, true)
	h.app.opts.ResetConfig = true

	err := h.app.Run(context.Background())
	if !errors.Is(err, domain.ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig after reset, got %v", err)
	}
}

func TestRescanReportsPositives(t *testing.T) {
	h := newHarness(t, true)
	dir := t.TempDir()
	for _, name := range []string{"JaneD0610.pdf", "JohnR0609.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	h.app.opts.RescanDir = dir

	if err := h.app.Run(context.Background()); err != nil {
		t.Fatalf("rescan error: %v", err)
	}
	out := h.app.out.(*bytes.Buffer).String()
	if !strings.Contains(out, "Positive results:\n  JohnR0609.pdf\n") {
		t.Fatalf("unexpected rescan output:\n%s", out)
	}
	if strings.Contains(out, "JaneD0610.pdf") {
		t.Fatalf("negative result listed:\n%s", out)
	}
	if h.portal.logins != 0 || len(h.mailer.sent) != 0 {
		t.Fatalf("rescan must not touch the portal or send email")
	}
}

func TestRunRejectsResetWithRescan(t *testing.T) {
	h := newHarness(t, true)
	before, err := h.records.Load()
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	h.app.opts.ResetConfig = true
	h.app.opts.RescanDir = t.TempDir()

	if err := h.app.Run(context.Background()); !errors.Is(err, ErrIncompatibleOptions) {
		t.Fatalf("expected ErrIncompatibleOptions, got %v", err)
	}
	after, err := h.records.Load()
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if after.PortalUser != before.PortalUser || after.PortalUser == "" {
		t.Fatalf("saved configuration must be left alone, before=%+v after=%+v", before, after)
	}
	if h.portal.logins != 0 {
		t.Fatalf("portal must not be contacted")
	}
}
