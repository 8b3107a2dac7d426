package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrOCRUnavailable is returned when the rasterizer or OCR engine is missing or disabled.
var ErrOCRUnavailable = errors.New("ocr unavailable")

// Config names the external tools; empty values fall back to the binaries on PATH.
type Config struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
	Language  string
	DPI       int
	// OCRDisabled turns the image tier off regardless of installed tools.
	OCRDisabled bool
}

// Extractor reads PDF text through poppler-utils and tesseract.
type Extractor struct {
	cfg      Config
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithLookPath replaces the binary lookup used to detect OCR support.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(e *Extractor) { e.lookPath = fn }
}

// NewExtractor fills config defaults (300 DPI, English).
func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}

	e := &Extractor{cfg: cfg, lookPath: exec.LookPath, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = execRunner{logger: logger}
	}
	return e
}

// TextLayer returns the embedded text of every page joined with newlines.
func (e *Extractor) TextLayer(ctx context.Context, path string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	pages := strings.Split(strings.TrimRight(string(out), "\f"), "\f")
	return strings.Join(pages, "\n"), nil
}

// OCRAvailable checks that the image tier can run.
func (e *Extractor) OCRAvailable() error {
	if e.cfg.OCRDisabled {
		return fmt.Errorf("%w: disabled by configuration", ErrOCRUnavailable)
	}
	for _, bin := range []string{e.cfg.Pdftoppm, e.cfg.Tesseract} {
		if _, err := e.lookPath(bin); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrOCRUnavailable, bin, err)
		}
	}
	return nil
}

// OCRPages rasterizes path and recognises each page in order, calling visit with the page text.
// Recognition stops as soon as visit returns false. A page that fails to recognise is reported
// to visit as an error and scanning continues.
func (e *Extractor) OCRPages(ctx context.Context, path string, visit func(page int, text string, err error) bool) error {
	if err := e.OCRAvailable(); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "tva-pp-*")
	if err != nil {
		return fmt.Errorf("create raster dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("remove raster dir", "path", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	sortPages(images)
	if len(images) == 0 {
		return fmt.Errorf("pdftoppm produced no pages")
	}

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, img, "stdout", "-l", e.cfg.Language)
		if err != nil {
			err = fmt.Errorf("tesseract page %d: %w: %s", i+1, err, strings.TrimSpace(string(errb)))
		}
		if !visit(i+1, string(out), err) {
			break
		}
	}
	return nil
}

// sortPages orders page-N.png by page number.
func sortPages(images []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.Slice(images, func(i, j int) bool { return num(images[i]) < num(images[j]) })
}
