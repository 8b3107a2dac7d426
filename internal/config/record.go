package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	smtpUserEnv = "SMTP_USER"
	smtpPassEnv = "SMTP_PASS"
)

// Record is the flat key/value file holding credentials and per-user choices.
type Record struct {
	PortalUser  string `json:"testvault_user,omitempty"`
	PortalPass  string `json:"testvault_pass,omitempty"`
	ClientsURL  string `json:"clients_list_url,omitempty"`
	DownloadDir string `json:"download_dir,omitempty"`
	SMTPUser    string `json:"smtp_user,omitempty"`
	SMTPPass    string `json:"smtp_pass,omitempty"`
	Remember    *bool  `json:"remember,omitempty"`
}

// RememberCredentials defaults to true when the user never answered.
func (r Record) RememberCredentials() bool {
	return r.Remember == nil || *r.Remember
}

// ForgetSecrets drops the stored passwords and keeps everything else.
func (r *Record) ForgetSecrets() {
	r.PortalPass = ""
	r.SMTPPass = ""
}

// Missing lists required keys that have no value.
func (r Record) Missing() []string {
	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	check("testvault_user", r.PortalUser)
	check("testvault_pass", r.PortalPass)
	check("clients_list_url", r.ClientsURL)
	check("smtp_user", r.SMTPUser)
	check("smtp_pass", r.SMTPPass)
	return missing
}

// ApplyEnv lets SMTP_USER and SMTP_PASS (typically from .env) override the stored SMTP login.
// It reports whether anything changed.
func (r *Record) ApplyEnv() bool {
	changed := false
	if v := os.Getenv(smtpUserEnv); v != "" && v != r.SMTPUser {
		r.SMTPUser = v
		changed = true
	}
	if v := os.Getenv(smtpPassEnv); v != "" && v != r.SMTPPass {
		r.SMTPPass = v
		changed = true
	}
	return changed
}

// RecordStore reads and replaces the record file as a whole.
type RecordStore struct {
	path   string
	logger *slog.Logger
}

// NewRecordStore binds the store to path.
func NewRecordStore(path string, logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{path: path, logger: logger}
}

// Path returns the record location.
func (s *RecordStore) Path() string {
	return s.path
}

// Load returns an empty record when the file is missing or cannot be decoded.
func (s *RecordStore) Load() (Record, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("read config record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("config record unreadable, starting empty", "path", s.path, "error", err)
		return Record{}, nil
	}
	return rec, nil
}

// Save replaces the record atomically with owner-only permissions.
func (s *RecordStore) Save(rec Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace config record: %w", err)
	}
	return nil
}

// Reset deletes the record so every value is asked for again.
func (s *RecordStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reset config record: %w", err)
	}
	return nil
}
