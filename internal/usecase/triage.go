package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

// Triaged partitions results by verdict, each slice in input order.
type Triaged struct {
	All         []domain.ClassifiedResult
	Positives   []domain.Result
	Unreadables []domain.Result
	Negatives   []domain.Result
}

// Triage classifies every result exactly once.
func Triage(ctx context.Context, classifier ports.Classifier, results []domain.Result) Triaged {
	var t Triaged
	for _, r := range results {
		c := classifier.Classify(ctx, r.Path)
		t.All = append(t.All, domain.ClassifiedResult{Result: r, Classification: c})
		switch c.Verdict {
		case domain.VerdictPositive:
			t.Positives = append(t.Positives, r)
		case domain.VerdictUnreadable:
			t.Unreadables = append(t.Unreadables, r)
		default:
			t.Negatives = append(t.Negatives, r)
		}
	}
	return t
}

// ResultsInDir lists the PDFs of a results folder as results named after their files.
func ResultsInDir(dir string) ([]domain.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	var results []domain.Result
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		results = append(results, domain.Result{
			Path:       filepath.Join(dir, e.Name()),
			ClientName: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}
