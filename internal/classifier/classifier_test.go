package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"TestVaultAlerts/internal/domain"
)

type fakeExtractor struct {
	text     string
	textErr  error
	ocrErr   error
	pages    []string
	pageErrs map[int]error
	visited  int
	ocrCalls int
}

func (f *fakeExtractor) TextLayer(context.Context, string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeExtractor) OCRAvailable() error { return f.ocrErr }

func (f *fakeExtractor) OCRPages(_ context.Context, _ string, visit func(int, string, error) bool) error {
	f.ocrCalls++
	if f.ocrErr != nil {
		return f.ocrErr
	}
	for i, p := range f.pages {
		f.visited++
		if !visit(i+1, p, f.pageErrs[i+1]) {
			break
		}
	}
	return nil
}

func longText(body string) string {
	return strings.Repeat("lorem ipsum ", 60) + body
}

func TestClassifyTextLayer(t *testing.T) {
	t.Parallel()

	policy := Policy{Keywords: []string{"Inconsistent Result"}, CaseSensitive: true}
	tests := []struct {
		name string
		text string
		want domain.Verdict
	}{
		{name: "positive", text: longText("Result: Inconsistent Result detected"), want: domain.VerdictPositive},
		{name: "negative", text: longText("Result: Negative"), want: domain.VerdictNegative},
		{name: "case mismatch", text: longText("result: inconsistent result"), want: domain.VerdictNegative},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ex := &fakeExtractor{text: tt.text}
			got := New(ex, policy, 0, nil).Classify(context.Background(), "JaneD0610.pdf")
			if got.Verdict != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got.Verdict)
			}
			if got.Method != domain.MethodTextLayer {
				t.Fatalf("expected text-layer method, got %s", got.Method)
			}
			if ex.ocrCalls != 0 {
				t.Fatalf("long text must not reach the OCR tier")
			}
		})
	}
}

func TestClassifyShortTextUsesOCR(t *testing.T) {
	t.Parallel()

	// Exactly 500 characters is still considered too short for a direct verdict.
	text := strings.Repeat("x", 481) + "Inconsistent Result"
	ex := &fakeExtractor{text: text, pages: []string{"Result: NEGATIVE"}}

	got := New(ex, DefaultPolicy(), 500, nil).Classify(context.Background(), "a.pdf")
	if ex.ocrCalls != 1 {
		t.Fatalf("expected OCR tier, calls=%d", ex.ocrCalls)
	}
	if got.Method != domain.MethodOCR || got.Verdict != domain.VerdictNegative {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassifyOCRIsCaseInsensitiveAndStopsEarly(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{pages: []string{"header", "INCONSISTENT RESULT for THC", "page three"}}
	got := New(ex, DefaultPolicy(), 0, nil).Classify(context.Background(), "a.pdf")

	if got.Verdict != domain.VerdictPositive {
		t.Fatalf("expected positive, got %+v", got)
	}
	if got.Keyword != "Inconsistent Result" {
		t.Fatalf("unexpected keyword %q", got.Keyword)
	}
	if ex.visited != 2 {
		t.Fatalf("expected scan to stop at page 2, visited %d", ex.visited)
	}
}

func TestClassifyUnreadable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ex   *fakeExtractor
	}{
		{name: "ocr unavailable", ex: &fakeExtractor{text: "", ocrErr: errors.New("tesseract not found")}},
		{name: "corrupt pdf", ex: &fakeExtractor{textErr: errors.New("Syntax Error"), ocrErr: errors.New("pdftoppm failed")}},
		{name: "no pages", ex: &fakeExtractor{}},
		{name: "page errors", ex: &fakeExtractor{pages: []string{"", "clean"}, pageErrs: map[int]error{1: errors.New("boom")}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := New(tt.ex, DefaultPolicy(), 0, nil).Classify(context.Background(), "a.pdf")
			if got.Verdict != domain.VerdictUnreadable {
				t.Fatalf("expected unreadable, got %+v", got)
			}
			if got.Reason == "" {
				t.Fatalf("unreadable verdict must carry a reason")
			}
		})
	}
}

func TestClassifyPageErrorAfterMatchIsPositive(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{
		pages:    []string{"", "value above cutoff"},
		pageErrs: map[int]error{1: errors.New("blurry")},
	}
	got := New(ex, DefaultPolicy(), 0, nil).Classify(context.Background(), "a.pdf")
	if got.Verdict != domain.VerdictPositive {
		t.Fatalf("expected positive, got %+v", got)
	}
}

func TestPolicyMatch(t *testing.T) {
	t.Parallel()

	p := Policy{Keywords: []string{"", "Reportable"}, CaseSensitive: false}
	if kw, ok := p.Match("NOT REPORTABLE"); !ok || kw != "Reportable" {
		t.Fatalf("expected folded match, got %q %v", kw, ok)
	}
	p.CaseSensitive = true
	if _, ok := p.Match("NOT REPORTABLE"); ok {
		t.Fatalf("case-sensitive policy must not match")
	}
	if _, ok := p.Match(""); ok {
		t.Fatalf("empty keyword must never match")
	}
}
