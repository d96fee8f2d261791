package core

import (
	"fmt"
	"strings"
)

// Label is the closed set of classifier verdicts.
type Label string

const (
	LabelSafe       Label = "SAFE"
	LabelLegitimate Label = "LEGITIMATE"
	LabelSuspicious Label = "SUSPICIOUS"
	LabelMalicious  Label = "MALICIOUS"
	LabelPhishing   Label = "PHISHING"
	LabelError      Label = "ERROR"
)

// ParseLabel maps a classifier verdict string onto a Label. Anything
// outside the enumeration is an ERROR.
func ParseLabel(s string) Label {
	switch l := Label(strings.ToUpper(strings.TrimSpace(s))); l {
	case LabelSafe, LabelLegitimate, LabelSuspicious, LabelMalicious, LabelPhishing:
		return l
	default:
		return LabelError
	}
}

// Category is the counter bucket a label is aggregated into.
type Category string

const (
	CategorySafe      Category = CounterSafe
	CategoryMalicious Category = CounterMalicious
	CategoryPhishing  Category = CounterPhishing
	CategoryNone      Category = ""
)

// Category returns the counter bucket of the label.
func (l Label) Category() Category {
	switch l {
	case LabelSafe, LabelLegitimate:
		return CategorySafe
	case LabelSuspicious, LabelMalicious:
		return CategoryMalicious
	case LabelPhishing:
		return CategoryPhishing
	default:
		return CategoryNone
	}
}

// Risky reports whether links in an email with this label must be guarded.
func (l Label) Risky() bool {
	return l == LabelSuspicious || l == LabelPhishing || l == LabelMalicious
}

// Verdict is a label paired with a score in [0,1]; a nil score is
// unavailable.
type Verdict struct {
	Label      Label
	Score      *float64
	SnapshotID string
}

// ErrorVerdict is what every network fault degrades to.
func ErrorVerdict(snapshotID string) Verdict {
	return Verdict{Label: LabelError, SnapshotID: snapshotID}
}

// VerdictFromResult maps a raw classifier answer to a Verdict.
func VerdictFromResult(r *ClassificationResult, snapshotID string) Verdict {
	if r == nil {
		return ErrorVerdict(snapshotID)
	}
	v := Verdict{Label: ParseLabel(r.Verdict), SnapshotID: snapshotID}
	if r.Score != nil {
		s := *r.Score
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		v.Score = &s
	}
	return v
}

// ScoreText formats the score for display ("0.87" or "N/A").
func (v Verdict) ScoreText() string {
	if v.Score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v.Score)
}

// ScoreValue returns the score or 0 when unavailable.
func (v Verdict) ScoreValue() float64 {
	if v.Score == nil {
		return 0
	}
	return *v.Score
}

// BadgeText is the label rendered next to the subject line.
func (v Verdict) BadgeText() string {
	return fmt.Sprintf("🛡️ %s (%s)", v.Label, v.ScoreText())
}

// Palette is the badge colouring of a verdict.
type Palette struct {
	Background string
	Foreground string
}

// Palette returns the badge colours for the verdict.
func (v Verdict) Palette() Palette {
	switch v.Label {
	case LabelPhishing, LabelMalicious:
		return Palette{Background: "#ffe6e6", Foreground: "red"}
	case LabelSuspicious:
		return Palette{Background: "#fff3cd", Foreground: "#856404"}
	case LabelError:
		return Palette{Background: "#f0f0f0", Foreground: "#333"}
	default:
		return Palette{Background: "#e6ffed", Foreground: "green"}
	}
}
