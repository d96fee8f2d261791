// Package snapshot holds the single process-wide capture of the open email.
package snapshot

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
	"github.com/mikey/inbox-sentry/internal/identity"
	"github.com/mikey/inbox-sentry/internal/normalize"
)

// Manager captures, caches and invalidates the email snapshot. The cached
// value is only ever replaced whole, so readers see either the previous
// snapshot or the new one.
type Manager struct {
	page       core.Page
	normalizer *normalize.Normalizer
	resolver   *identity.Resolver
	logger     *zap.Logger
	current    atomic.Pointer[core.Snapshot]
	now        func() time.Time
}

// NewManager creates a new snapshot manager
func NewManager(
	page core.Page,
	normalizer *normalize.Normalizer,
	resolver *identity.Resolver,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		page:       page,
		normalizer: normalizer,
		resolver:   resolver,
		logger:     logger,
		now:        time.Now,
	}
}

// CaptureNow reads the live page, builds a fresh snapshot and caches it.
// It never fails: an unreadable page yields the sentinel snapshot.
func (m *Manager) CaptureNow(ctx context.Context) *core.Snapshot {
	location, err := m.page.Location(ctx)
	if err != nil {
		m.logger.Warn("Failed to read page location", zap.Error(err))
	}

	doc, err := m.page.Snapshot(ctx)
	if err != nil {
		m.logger.Warn("Failed to read page", zap.Error(err))
		doc = nil
	}

	snap := m.Build(doc, location)
	m.current.Store(snap)

	m.logger.Debug("Snapshot captured",
		zap.String("id", snap.ID),
		zap.String("url", snap.URL),
		zap.String("subject", snap.Subject),
		zap.String("sender", snap.Sender),
		zap.Int("body_length", len(snap.BodyText)))

	return snap
}

// Build assembles a snapshot from a parsed page without caching it.
func (m *Manager) Build(doc *html.Node, location string) *core.Snapshot {
	snap := &core.Snapshot{
		ID:         uuid.NewString(),
		URL:        location,
		Subject:    core.UnknownSubject,
		Sender:     core.UnknownSender,
		CapturedAt: m.now(),
	}
	if doc == nil {
		return snap
	}

	content := dom.QueryFirst(doc, dom.ContentMarker)
	subject := dom.QueryFirst(doc, dom.SubjectMarker)
	if content == nil && subject == nil {
		// No email open.
		return snap
	}

	snap.Subject = identity.Subject(doc)
	snap.Sender = m.resolver.Sender(doc)
	snap.BodyHTML = dom.InnerHTML(content)
	snap.BodyText = m.normalizer.Extract(doc, location)
	return snap
}

// Current returns the cached snapshot, capturing one if none is cached.
func (m *Manager) Current(ctx context.Context) *core.Snapshot {
	if snap := m.current.Load(); snap != nil {
		return snap
	}
	return m.CaptureNow(ctx)
}

// Peek returns the cached snapshot, or nil when unset.
func (m *Manager) Peek() *core.Snapshot {
	return m.current.Load()
}

// Invalidate clears the cached snapshot.
func (m *Manager) Invalidate() {
	m.current.Store(nil)
}
