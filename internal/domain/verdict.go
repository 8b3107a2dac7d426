package domain

// Verdict is the tri-state outcome of classifying a result PDF.
type Verdict int

const (
	VerdictNegative Verdict = iota
	VerdictPositive
	VerdictUnreadable
)

func (v Verdict) String() string {
	switch v {
	case VerdictPositive:
		return "positive"
	case VerdictNegative:
		return "negative"
	case VerdictUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// ClassificationMethod names the extraction tier that produced a verdict.
type ClassificationMethod string

const (
	MethodTextLayer ClassificationMethod = "text"
	MethodOCR       ClassificationMethod = "ocr"
	MethodNone      ClassificationMethod = "none"
)

// Classification carries the verdict together with how it was reached.
type Classification struct {
	Verdict Verdict
	Method  ClassificationMethod
	Keyword string
	Reason  string
}

// ClassifiedResult pairs a result with its classification.
type ClassifiedResult struct {
	Result         Result
	Classification Classification
}
