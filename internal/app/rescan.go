package app

import (
	"context"
	"fmt"
	"path/filepath"

	"TestVaultAlerts/internal/usecase"
)

// rescan classifies every PDF already in dir without touching the portal or the ledger.
func (a *Application) rescan(ctx context.Context, dir string) error {
	results, err := usecase.ResultsInDir(dir)
	if err != nil {
		return err
	}
	a.logger.Info("rescanning results", "dir", dir, "files", len(results))

	triaged := usecase.Triage(ctx, a.classifier, results)

	fmt.Fprintf(a.out, "Checked %d results in %s\n", len(results), dir)
	if len(triaged.Positives) == 0 {
		fmt.Fprintln(a.out, "No positive results.")
	} else {
		fmt.Fprintln(a.out, "Positive results:")
		for _, r := range triaged.Positives {
			fmt.Fprintf(a.out, "  %s\n", filepath.Base(r.Path))
		}
	}
	if len(triaged.Unreadables) > 0 {
		fmt.Fprintln(a.out, "Could not be read, check manually:")
		for _, r := range triaged.Unreadables {
			fmt.Fprintf(a.out, "  %s\n", filepath.Base(r.Path))
		}
	}
	return nil
}
