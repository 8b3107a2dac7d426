package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"TestVaultAlerts/internal/domain"
)

const (
	// DayFormat names the per-run results directory and formats result dates.
	DayFormat   = "2006-01-02"
	tokenFormat = "01022006"
)

var tokenExpr = regexp.MustCompile(`(\d{8})\.pdf$`)

// DateToken is the collection date embedded in a document title.
type DateToken struct {
	Raw  string
	Date time.Time
}

// Formatted returns the collection date as YYYY-MM-DD.
func (t DateToken) Formatted() string {
	return t.Date.Format(DayFormat)
}

// ParseDateToken extracts the MMDDYYYY token that precedes ".pdf" in a title.
func ParseDateToken(title string) (DateToken, error) {
	m := tokenExpr.FindStringSubmatch(title)
	if m == nil {
		return DateToken{}, fmt.Errorf("%q: %w", title, domain.ErrNoDateToken)
	}
	date, err := time.Parse(tokenFormat, m[1])
	if err != nil {
		return DateToken{}, fmt.Errorf("%q: invalid date %s: %w", title, m[1], err)
	}
	return DateToken{Raw: m[1], Date: date}, nil
}

// DayDir is the directory holding everything downloaded on today.
func DayDir(base string, today time.Time) string {
	return filepath.Join(base, today.Format(DayFormat))
}

// PathFor maps a client and collection date to base/YYYY-MM-DD/<first><last initial><MMDD>.pdf.
func PathFor(base string, today time.Time, first, last string, collection time.Time) string {
	name := first
	if r := []rune(last); len(r) > 0 {
		name += string(r[0])
	}
	name += collection.Format("0102") + ".pdf"
	return filepath.Join(DayDir(base, today), name)
}

// Prepare returns PathFor and creates the day directory.
func Prepare(base string, today time.Time, first, last string, collection time.Time) (string, error) {
	path := PathFor(base, today, first, last, collection)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create day dir: %w", err)
	}
	return path, nil
}
