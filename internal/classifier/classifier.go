package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

// DefaultMinChars is the text-layer length at or below which the OCR tier is used.
const DefaultMinChars = 500

// Extractor provides the two text tiers for a PDF.
type Extractor interface {
	TextLayer(ctx context.Context, path string) (string, error)
	OCRAvailable() error
	OCRPages(ctx context.Context, path string, visit func(page int, text string, err error) bool) error
}

// Classifier assigns a verdict to a result PDF.
type Classifier struct {
	extractor Extractor
	policy    Policy
	minChars  int
	logger    *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// New builds a classifier; minChars <= 0 selects DefaultMinChars.
func New(extractor Extractor, policy Policy, minChars int, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Classifier{extractor: extractor, policy: policy, minChars: minChars, logger: logger}
}

// Classify never fails: extraction problems produce an Unreadable verdict.
func (c *Classifier) Classify(ctx context.Context, path string) domain.Classification {
	name := filepath.Base(path)

	text, err := c.extractor.TextLayer(ctx, path)
	if err != nil {
		c.logger.Warn("text layer unavailable", "file", name, "error", err)
		text = ""
	}

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) > c.minChars {
		return c.decide(name, domain.MethodTextLayer, c.policy, trimmed)
	}

	return c.classifyOCR(ctx, path, name)
}

func (c *Classifier) decide(name string, method domain.ClassificationMethod, policy Policy, text string) domain.Classification {
	if kw, ok := policy.Match(text); ok {
		c.logger.Info("indicator found", "file", name, "method", method, "keyword", kw)
		return domain.Classification{Verdict: domain.VerdictPositive, Method: method, Keyword: kw}
	}
	c.logger.Debug("no indicator", "file", name, "method", method)
	return domain.Classification{Verdict: domain.VerdictNegative, Method: method}
}

func (c *Classifier) classifyOCR(ctx context.Context, path, name string) domain.Classification {
	if err := c.extractor.OCRAvailable(); err != nil {
		c.logger.Warn("could not read result, check manually", "file", name, "error", err)
		return unreadable(fmt.Sprintf("ocr unavailable: %v", err))
	}

	policy := c.policy.Folded()
	var (
		keyword string
		pages   int
		pageErr error
	)
	err := c.extractor.OCRPages(ctx, path, func(page int, text string, err error) bool {
		pages++
		if err != nil {
			pageErr = errors.Join(pageErr, err)
			return true
		}
		if kw, ok := policy.Match(text); ok {
			keyword = kw
			return false
		}
		return true
	})

	switch {
	case keyword != "":
		c.logger.Info("indicator found", "file", name, "method", domain.MethodOCR, "keyword", keyword)
		return domain.Classification{Verdict: domain.VerdictPositive, Method: domain.MethodOCR, Keyword: keyword}
	case err != nil:
		c.logger.Warn("could not read result, check manually", "file", name, "error", err)
		return unreadable(err.Error())
	case pages == 0:
		c.logger.Warn("could not read result, check manually", "file", name, "error", "no pages recognised")
		return unreadable("no pages recognised")
	case pageErr != nil:
		c.logger.Warn("could not read result, check manually", "file", name, "error", pageErr)
		return unreadable(pageErr.Error())
	default:
		c.logger.Debug("no indicator", "file", name, "method", domain.MethodOCR, "pages", pages)
		return domain.Classification{Verdict: domain.VerdictNegative, Method: domain.MethodOCR}
	}
}

func unreadable(reason string) domain.Classification {
	return domain.Classification{Verdict: domain.VerdictUnreadable, Method: domain.MethodNone, Reason: reason}
}
