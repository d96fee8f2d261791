package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
)

// Presenter renders verdicts and notices on a terminal instead of a page
type Presenter struct {
	mu      sync.Mutex
	out     io.Writer
	logger  *zap.Logger
	verbose bool
	last    *core.Verdict
}

// NewPresenter creates a new terminal presenter
func NewPresenter(out io.Writer, logger *zap.Logger, verbose bool) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{
		out:     out,
		logger:  logger,
		verbose: verbose,
	}
}

// PrintSnapshot prints the captured email summary
func (p *Presenter) PrintSnapshot(s *core.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(p.out, "Location: %s\n", s.URL)
	fmt.Fprintf(p.out, "From: %s\n", s.Sender)
	fmt.Fprintf(p.out, "Subject: %s\n", s.Subject)
	fmt.Fprintf(p.out, "Body length: %d characters\n", utf8.RuneCountInString(s.BodyText))

	// Print body preview if verbose
	if p.verbose {
		preview := []rune(s.BodyText)
		if len(preview) > 500 {
			preview = append(preview[:500], []rune("...")...)
		}
		fmt.Fprintf(p.out, "\nBody preview:\n%s\n", string(preview))
	}
	fmt.Fprintf(p.out, "\n")
}

// ShowBadge implements core.Surface
func (p *Presenter) ShowBadge(ctx context.Context, v core.Verdict) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = &v
	fmt.Fprintf(p.out, "=== Results ===\n")
	fmt.Fprintf(p.out, "%s\n", v.BadgeText())
	fmt.Fprintf(p.out, "Verdict: %s\n", v.Label)
	fmt.Fprintf(p.out, "Score: %s\n", v.ScoreText())
	if v.Label.Risky() {
		fmt.Fprintf(p.out, "Links in this email are protected\n")
	}
	return nil
}

// ShowStatus implements core.Surface
func (p *Presenter) ShowStatus(ctx context.Context, s core.Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s\n", s.Message)
	return nil
}

// RemoveAll implements core.Surface; terminal output cannot be withdrawn
func (p *Presenter) RemoveAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = nil
	return nil
}

// LastVerdict returns the most recent verdict shown, if any
func (p *Presenter) LastVerdict() (core.Verdict, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return core.Verdict{}, false
	}
	return *p.last, true
}

// PrintStats prints the daily counters
func (p *Presenter) PrintStats(stats *core.DailyStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n=== Today (%s, %s) ===\n", stats.Day, stats.User)
	fmt.Fprintf(p.out, "Scanned: %d\n", stats.Scans)
	fmt.Fprintf(p.out, "Safe: %d\n", stats.Safe)
	fmt.Fprintf(p.out, "Malicious: %d\n", stats.Malicious)
	fmt.Fprintf(p.out, "Phishing: %d\n", stats.Phishing)
	fmt.Fprintf(p.out, "Total: %d\n", stats.Total())
}

// PrintHTML prints the re-encoded display HTML
func (p *Presenter) PrintHTML(fragment string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n=== Display HTML ===\n%s\n", fragment)
}

// PrintLinks prints the links the guard protects
func (p *Presenter) PrintLinks(links []string) {
	if len(links) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n=== Protected links ===\n")
	for _, l := range links {
		fmt.Fprintf(p.out, "- %s\n", l)
	}
}
