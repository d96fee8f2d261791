// Package linkguard decides which clicks on links inside a risky email must
// be intercepted with a warning.
package linkguard

import (
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
)

var anchorSelector = dom.MustSelector("a[href]")

// Link is an anchor found inside the email content.
type Link struct {
	Text string
	Href string
}

// Warning is what the page shows before following an intercepted link.
type Warning struct {
	Level string
	Color string
	URL   string
}

// Guard holds the link-risk flag of the open email
type Guard struct {
	mu        sync.RWMutex
	label     core.Label
	armed     bool
	domains   []string
	listeners []func(armed bool, label core.Label)
	logger    *zap.Logger
}

// NewGuard creates a guard. Links to the trusted domains (and their
// subdomains) are never intercepted.
func NewGuard(trustedDomains []string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Normalize domains (lowercase)
	normalized := make([]string, 0, len(trustedDomains))
	for _, domain := range trustedDomains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 {
		logger.Info("Initialized link guard", zap.Strings("trusted_domains", normalized))
	}

	return &Guard{
		domains: normalized,
		logger:  logger,
	}
}

// OnChange registers fn to be called whenever the guard is armed or
// disarmed.
func (g *Guard) OnChange(fn func(armed bool, label core.Label)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// SetVerdict arms the guard for risky labels and disarms it otherwise.
func (g *Guard) SetVerdict(label core.Label) {
	g.set(label, label.Risky())
}

// Reset disarms the guard and forgets the verdict.
func (g *Guard) Reset() {
	g.set("", false)
}

func (g *Guard) set(label core.Label, armed bool) {
	g.mu.Lock()
	changed := g.armed != armed
	g.label = label
	g.armed = armed
	listeners := g.listeners
	g.mu.Unlock()

	if !changed {
		return
	}
	if armed {
		g.logger.Info("Link protection activated", zap.String("verdict", string(label)))
	} else {
		g.logger.Debug("Link protection deactivated")
	}
	for _, fn := range listeners {
		fn(armed, label)
	}
}

// Armed reports whether clicks are being intercepted.
func (g *Guard) Armed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.armed
}

// TrustedDomains returns the normalised trusted domain list.
func (g *Guard) TrustedDomains() []string {
	return append([]string(nil), g.domains...)
}

// IsTrusted checks if the link's host is a trusted domain
func (g *Guard) IsTrusted(href string) bool {
	if len(g.domains) == 0 {
		return false
	}

	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, trusted := range g.domains {
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			g.logger.Debug("Link host is trusted",
				zap.String("host", host),
				zap.String("href", href))
			return true
		}
	}

	return false
}

// ShouldIntercept decides whether a click on href must be stopped. Only
// links inside the email content of a risky email are intercepted.
func (g *Guard) ShouldIntercept(href string, inEmailContent bool) bool {
	if !inEmailContent || !g.Armed() {
		return false
	}
	return !g.IsTrusted(href)
}

// Warning returns the warning shown for an intercepted link.
func (g *Guard) Warning(href string) Warning {
	g.mu.RLock()
	label := g.label
	g.mu.RUnlock()

	if label == core.LabelPhishing {
		return Warning{Level: string(core.LabelPhishing), Color: "#dc3545", URL: href}
	}
	return Warning{Level: string(core.LabelSuspicious), Color: "#fd7e14", URL: href}
}

// ProtectedLinks lists the anchors inside the email content containers.
func ProtectedLinks(doc *html.Node) []Link {
	var links []Link
	seen := make(map[*html.Node]bool)
	for _, sel := range dom.ContentContainers {
		for _, container := range dom.QueryAll(doc, sel) {
			for _, a := range dom.QueryAll(container, anchorSelector) {
				if seen[a] {
					continue
				}
				seen[a] = true
				links = append(links, Link{
					Text: strings.TrimSpace(dom.TextContent(a)),
					Href: dom.Attr(a, "href"),
				})
			}
		}
	}
	return links
}

// InEmailContent reports whether n sits inside an email content container.
func InEmailContent(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		for _, sel := range dom.ContentContainers {
			if p.Type == html.ElementNode && sel.Match(p) {
				return true
			}
		}
	}
	return false
}
