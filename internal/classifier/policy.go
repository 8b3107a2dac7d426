package classifier

import "strings"

// DefaultKeywords are the indicator phrases printed on positive UA reports.
var DefaultKeywords = []string{"Inconsistent Result", "reportable", "above"}

// Policy decides whether extracted text indicates a positive result.
type Policy struct {
	Keywords      []string
	CaseSensitive bool
}

// DefaultPolicy matches DefaultKeywords case-sensitively.
func DefaultPolicy() Policy {
	kw := make([]string, len(DefaultKeywords))
	copy(kw, DefaultKeywords)
	return Policy{Keywords: kw, CaseSensitive: true}
}

// Match returns the first configured keyword found in text.
func (p Policy) Match(text string) (string, bool) {
	haystack := text
	if !p.CaseSensitive {
		haystack = strings.ToLower(text)
	}
	for _, kw := range p.Keywords {
		if kw == "" {
			continue
		}
		needle := kw
		if !p.CaseSensitive {
			needle = strings.ToLower(kw)
		}
		if strings.Contains(haystack, needle) {
			return kw, true
		}
	}
	return "", false
}

// Folded returns a copy of p that ignores case.
func (p Policy) Folded() Policy {
	p.CaseSensitive = false
	return p
}
