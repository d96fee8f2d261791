// Package identity works out who is looking at the page and who sent the
// open email, using an ordered list of strategies for each.
package identity

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
)

// maxSenderText bounds the header text scanned by the sender fallback.
const maxSenderText = 200

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Input is what a strategy inspects.
type Input struct {
	Doc      *html.Node
	Location string
}

// Strategy is one way of finding an address. Strategies are tried in order
// and the first that reports ok wins.
type Strategy struct {
	Name    string
	Extract func(in Input) (string, bool)
}

// Resolver resolves the user and sender identities from a page.
type Resolver struct {
	logger *zap.Logger
	user   []Strategy
	sender []Strategy
}

// NewResolver creates a Resolver with the default strategy chains.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger: logger,
		user:   UserStrategies,
		sender: SenderStrategies,
	}
}

// User returns the local part of the signed-in account address, or
// core.DefaultUser.
func (r *Resolver) User(doc *html.Node, location string) string {
	addr, name := run(r.user, Input{Doc: doc, Location: location})
	if addr == "" {
		r.logger.Debug("User address not found, using default")
		return core.DefaultUser
	}
	local, _, _ := strings.Cut(addr, "@")
	if local == "" {
		return core.DefaultUser
	}
	r.logger.Debug("Resolved user", zap.String("strategy", name))
	return local
}

// Sender returns the open email's sender address, or core.UnknownSender.
func (r *Resolver) Sender(doc *html.Node) string {
	addr, _ := run(r.sender, Input{Doc: doc})
	if addr == "" {
		return core.UnknownSender
	}
	return addr
}

// Subject returns the open email's subject line, or core.UnknownSubject.
// A badge already rendered into the subject line is not part of it.
func Subject(doc *html.Node) string {
	heading := dom.Clone(dom.QueryFirst(doc, dom.SubjectMarker))
	for _, n := range dom.QueryAll(heading, dom.ExtensionElements) {
		dom.Remove(n)
	}
	if s := strings.TrimSpace(dom.TextContent(heading)); s != "" {
		return s
	}
	return core.UnknownSubject
}

func run(strategies []Strategy, in Input) (string, string) {
	for _, s := range strategies {
		if addr, ok := s.Extract(in); ok && addr != "" {
			return addr, s.Name
		}
	}
	return "", ""
}

// FindEmail returns the first address-shaped substring of s.
func FindEmail(s string) (string, bool) {
	m := emailRe.FindString(s)
	return m, m != ""
}

// PageResolver resolves the current user from a live page.
type PageResolver struct {
	page     core.Page
	resolver *Resolver
	logger   *zap.Logger
}

// NewPageResolver creates a PageResolver.
func NewPageResolver(page core.Page, resolver *Resolver, logger *zap.Logger) *PageResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageResolver{page: page, resolver: resolver, logger: logger}
}

// CurrentUser returns the signed-in user's local part, falling back to
// core.DefaultUser when the page cannot be read.
func (p *PageResolver) CurrentUser(ctx context.Context) string {
	location, err := p.page.Location(ctx)
	if err != nil {
		p.logger.Warn("Failed to read page location", zap.Error(err))
	}
	doc, err := p.page.Snapshot(ctx)
	if err != nil {
		p.logger.Warn("Failed to snapshot page", zap.Error(err))
		doc = nil
	}
	return p.resolver.User(doc, location)
}

func decodeLocation(location string) string {
	if decoded, err := url.QueryUnescape(location); err == nil {
		return decoded
	}
	return location
}
