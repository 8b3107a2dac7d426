package notification

import (
	"fmt"
	"strings"

	"TestVaultAlerts/internal/domain"
)

// Alert subjects, from most to least severe.
const (
	SubjectPositive   = "New UA Results Alert - ⚠️ Positive UA"
	SubjectUnreadable = "New UA Results Alert - Unreadable Results"
	SubjectNegative   = "New UA Results Alert - All Negative"
)

// Format renders the alert email. Every new result is listed; nothing is truncated.
func Format(newResults, positives, unreadables []domain.Result, dir string) (subject, body string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Found %d new results.\n", len(newResults))
	b.WriteString("New results for:\n")
	writeResults(&b, newResults)
	b.WriteString("\n")

	switch {
	case len(positives) > 0:
		subject = SubjectPositive
	case len(unreadables) > 0:
		subject = SubjectUnreadable
	default:
		subject = SubjectNegative
	}

	if len(positives) > 0 {
		b.WriteString("The following clients have POSITIVE UA results:\n")
		writeResults(&b, positives)
		b.WriteString("\n")
	}
	if len(unreadables) > 0 {
		b.WriteString("The following results could not be read and must be checked manually:\n")
		writeResults(&b, unreadables)
		b.WriteString("\n")
	}
	if len(positives) == 0 && len(unreadables) == 0 {
		b.WriteString("All results are negative.\n")
	}

	fmt.Fprintf(&b, "\nCheck %s for details.", dir)
	return subject, b.String()
}

func writeResults(b *strings.Builder, results []domain.Result) {
	for _, r := range results {
		fmt.Fprintf(b, "%s on %s\n", r.ClientName, r.CollectionDate)
	}
}
