package dom

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mikey/inbox-sentry/internal/core"
)

// Document is an in-memory webmail page. It serves detached snapshots of a
// parsed tree, renders the service's own elements into it and signals every
// change on its mutation channel.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	location  string
	mutations chan struct{}
}

// NewDocument parses markup into a Document at the given location.
func NewDocument(markup, location string) (*Document, error) {
	root, err := Parse(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{
		root:      root,
		location:  location,
		mutations: make(chan struct{}, 1),
	}, nil
}

// Location implements core.Page.
func (d *Document) Location(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location, nil
}

// Snapshot implements core.Page.
func (d *Document) Snapshot(ctx context.Context) (*html.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Clone(d.root), nil
}

// Mutations signals after every change to the tree. Signals coalesce.
func (d *Document) Mutations() <-chan struct{} {
	return d.mutations
}

// Mutate applies fn to the live tree and signals a mutation.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	fn(d.root)
	d.mu.Unlock()
	d.notify()
}

// Load replaces the whole document, optionally moving to a new location.
func (d *Document) Load(markup, location string) error {
	root, err := Parse(markup)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	d.mu.Lock()
	d.root = root
	if location != "" {
		d.location = location
	}
	d.mu.Unlock()
	d.notify()
	return nil
}

// Navigate changes the location without touching the tree. No mutation is
// signalled, as with in-page history navigation.
func (d *Document) Navigate(location string) {
	d.mu.Lock()
	d.location = location
	d.mu.Unlock()
}

// HTML serialises the live tree.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return OuterHTML(d.root)
}

// ShowBadge implements core.Surface. The badge goes inside the subject line,
// or at the top of the body when there is none.
func (d *Document) ShowBadge(ctx context.Context, v core.Verdict) error {
	p := v.Palette()
	badge := NewElement(atom.Span,
		"id", BadgeID,
		"data-verdict", string(v.Label),
		"data-score", v.ScoreText(),
		"style", BadgeStyle(p),
	)
	badge.AppendChild(&html.Node{Type: html.TextNode, Data: v.BadgeText()})

	d.Mutate(func(root *html.Node) {
		if old := FindByID(root, BadgeID); old != nil {
			Remove(old)
		}
		if subject := QueryFirst(root, SubjectMarker); subject != nil {
			subject.AppendChild(badge)
		} else if body := Body(root); body != nil {
			body.InsertBefore(badge, body.FirstChild)
		}
	})
	return nil
}

// ShowStatus implements core.Surface.
func (d *Document) ShowStatus(ctx context.Context, s core.Status) error {
	class := "status-error"
	if s.OK {
		class = "status-ok"
	}
	status := NewElement(atom.Div, "id", StatusID, "class", class)
	status.AppendChild(&html.Node{Type: html.TextNode, Data: s.Message})

	d.Mutate(func(root *html.Node) {
		if old := FindByID(root, StatusID); old != nil {
			Remove(old)
		}
		if body := Body(root); body != nil {
			body.AppendChild(status)
		}
	})
	return nil
}

// RemoveAll implements core.Surface.
func (d *Document) RemoveAll(ctx context.Context) error {
	d.Mutate(func(root *html.Node) {
		for _, id := range ExtensionElementIDs {
			for n := FindByID(root, id); n != nil; n = FindByID(root, id) {
				Remove(n)
			}
		}
	})
	return nil
}

func (d *Document) notify() {
	select {
	case d.mutations <- struct{}{}:
	default:
	}
}

// BadgeStyle is the inline style of the verdict badge.
func BadgeStyle(p core.Palette) string {
	return fmt.Sprintf("margin-left: 10px; padding: 2px 6px; border-radius: 4px; font-size: 12px; background: %s; color: %s", p.Background, p.Foreground)
}
