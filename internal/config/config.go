package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TestVaultAlerts/internal/classifier"
)

const (
	appDirName       = "testvault-alerts"
	settingsPathEnv  = "TESTVAULT_ALERTS_SETTINGS"
	logLevelEnv      = "LOG_LEVEL"
	sendToEnv        = "SEND_TO"
	smtpHostEnv      = "SMTP_HOST"
	smtpPortEnv      = "SMTP_PORT"
	ledgerPathEnv    = "TESTVAULT_LEDGER_PATH"
	archiveBucketEnv = "TESTVAULT_ARCHIVE_BUCKET"

	LedgerCSV    = "csv"
	LedgerSQLite = "sqlite"
)

// Config holds the operational settings shared across the application.
type Config struct {
	Portal     PortalConfig     `yaml:"portal"`
	Classifier ClassifierConfig `yaml:"classifier"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Report     ReportConfig     `yaml:"report"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
	// RecordPath overrides the location of the saved credentials file.
	RecordPath string `yaml:"recordPath"`
}

// PortalConfig tunes the HTTP session against the portal.
type PortalConfig struct {
	LoginTimeout time.Duration `yaml:"loginTimeout"`
	UserAgent    string        `yaml:"userAgent"`
}

// ClassifierConfig holds the keyword policy and the extraction tools.
type ClassifierConfig struct {
	Keywords      []string `yaml:"keywords"`
	CaseSensitive bool     `yaml:"caseSensitive"`
	MinChars      int      `yaml:"minChars"`
	OCREnabled    bool     `yaml:"ocrEnabled"`
	DPI           int      `yaml:"dpi"`
	Language      string   `yaml:"language"`
	Pdftotext     string   `yaml:"pdftotext"`
	Pdftoppm      string   `yaml:"pdftoppm"`
	Tesseract     string   `yaml:"tesseract"`
}

// Policy converts the keyword settings into a classifier policy.
func (c ClassifierConfig) Policy() classifier.Policy {
	return classifier.Policy{Keywords: c.Keywords, CaseSensitive: c.CaseSensitive}
}

// SMTPConfig describes the outgoing mail server. Credentials live in the configuration record.
type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Recipient string `yaml:"recipient"`
}

// LedgerConfig selects where processed results are remembered.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ReportConfig toggles the per-run summary workbook.
type ReportConfig struct {
	Workbook bool `yaml:"workbook"`
}

// ArchiveConfig enables the S3 copy of new results when Bucket is set.
type ArchiveConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML settings (if present) and applies environment overrides. An empty path falls back
// to $TESTVAULT_ALERTS_SETTINGS.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(settingsPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths()
	return cfg
}

// Validate reports settings the run cannot work with.
func (c Config) Validate() error {
	var problems []string
	if len(c.Classifier.Keywords) == 0 {
		problems = append(problems, "classifier.keywords is empty")
	}
	if c.Classifier.MinChars < 0 {
		problems = append(problems, "classifier.minChars is negative")
	}
	if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
		problems = append(problems, "smtp.host/port not set")
	}
	switch c.Ledger.Driver {
	case LedgerCSV, LedgerSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unknown ledger.driver %q", c.Ledger.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(sendToEnv); v != "" {
		c.SMTP.Recipient = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.SMTP.Host = v
	}

	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		} else {
			log.Printf("config: ignoring %s=%q: %v", smtpPortEnv, v, err)
		}
	}

	if v := os.Getenv(ledgerPathEnv); v != "" {
		c.Ledger.Path = v
	}

	if v := os.Getenv(archiveBucketEnv); v != "" {
		c.Archive.Bucket = v
	}
}

func (c *Config) resolvePaths() {
	c.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Ledger.Driver))
	if c.Ledger.Path == "" {
		name := "priorTests.csv"
		if c.Ledger.Driver == LedgerSQLite {
			name = "priorTests.db"
		}
		c.Ledger.Path = filepath.Join(AppDir(), name)
	}
	if c.RecordPath == "" {
		c.RecordPath = filepath.Join(AppDir(), "config.json")
	}
}

// AppDir is the per-user directory holding the record and the ledger.
func AppDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDirName)
}

func defaultConfig() Config {
	return Config{
		Portal: PortalConfig{LoginTimeout: 5 * time.Second, UserAgent: "TestVaultAlerts/1.0"},
		Classifier: ClassifierConfig{
			Keywords:      append([]string(nil), classifier.DefaultKeywords...),
			CaseSensitive: true,
			MinChars:      classifier.DefaultMinChars,
			OCREnabled:    true,
			DPI:           300,
			Language:      "eng",
		},
		SMTP:    SMTPConfig{Host: "smtp.gmail.com", Port: 465},
		Ledger:  LedgerConfig{Driver: LedgerCSV},
		Report:  ReportConfig{Workbook: false},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
