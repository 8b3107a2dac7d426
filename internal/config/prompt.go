package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"

	"TestVaultAlerts/internal/domain"
)

// Prompter asks the operator for a single value.
type Prompter interface {
	Ask(label string, secret bool) (string, error)
}

// TerminalPrompter reads answers from stdin; secrets are read without echo.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter binds the prompter to the process stdin/stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Interactive reports whether stdin is attached to a terminal.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Ask prints label and returns the trimmed answer.
func (p *TerminalPrompter) Ask(label string, secret bool) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if secret && term.IsTerminal(os.Stdin.Fd()) {
		raw, err := term.ReadPassword(os.Stdin.Fd())
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

// Complete asks for every missing record value. Without a prompter a missing required value is
// ErrMissingConfig. It reports whether the record changed.
func Complete(rec *Record, p Prompter) (bool, error) {
	missing := rec.Missing()
	needDir := rec.DownloadDir == ""
	if len(missing) == 0 && !needDir {
		return false, nil
	}
	if p == nil {
		if len(missing) > 0 {
			return false, fmt.Errorf("%s: %w", strings.Join(missing, ", "), domain.ErrMissingConfig)
		}
		rec.DownloadDir = DefaultDownloadDir()
		return true, nil
	}

	fields := []struct {
		key    string
		label  string
		secret bool
		dst    *string
	}{
		{"testvault_user", "TestVault email", false, &rec.PortalUser},
		{"testvault_pass", "TestVault password", true, &rec.PortalPass},
		{"clients_list_url", "TestVault clients list URL", false, &rec.ClientsURL},
		{"smtp_user", "Sender email (SMTP username)", false, &rec.SMTPUser},
		{"smtp_pass", "Sender email app password", true, &rec.SMTPPass},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.dst) != "" {
			continue
		}
		v, err := p.Ask(f.label, f.secret)
		if err != nil {
			return false, err
		}
		if v == "" {
			return false, fmt.Errorf("%s: %w", f.key, domain.ErrMissingConfig)
		}
		*f.dst = v
	}

	if needDir {
		def := DefaultDownloadDir()
		v, err := p.Ask(fmt.Sprintf("Download directory for UA results [%s]", def), false)
		if err != nil {
			return false, err
		}
		if v == "" {
			v = def
		}
		rec.DownloadDir = v
	}

	if rec.Remember == nil && len(missing) > 0 {
		v, err := p.Ask("Remember passwords for the next run? [Y/n]", false)
		if err != nil {
			return false, err
		}
		remember := !strings.HasPrefix(strings.ToLower(v), "n")
		rec.Remember = &remember
	}

	return true, nil
}

// DefaultDownloadDir is ~/Downloads.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}
