// Package normalize converts a rendered email subtree into canonical plain
// text: decoration stripped, images and links turned into textual markers,
// block structure flattened to paragraphs and whitespace canonicalised.
package normalize

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
	"github.com/mikey/inbox-sentry/internal/utils"
)

// DefaultMaxChars is the canonical text limit in characters.
const DefaultMaxChars = 10000

var (
	imgSelector  = dom.MustSelector("img")
	linkSelector = dom.MustSelector("a")

	decorations = []cascadia.Selector{
		dom.MustSelector("div.yj6qo"),
		dom.MustSelector("div.adL"),
		dom.MustSelector("div.h5"),
		dom.MustSelector("div.gmail_extra"),
		dom.MustSelector("div.gmail_quote"),
		dom.MustSelector(`img[src*="gmail"]`),
		dom.MustSelector(`div[style*="display:none"]`),
		dom.MustSelector(`div[style*="display: none"]`),
		dom.MustSelector("[hidden]"),
		dom.MustSelector(`img[width="1"][height="1"]`),
		dom.MustSelector(`img[width="0"]`),
		dom.MustSelector("script, style, noscript, template, head"),
		dom.ExtensionElements,
	}
)

// stage rewrites the working copy in place.
type stage func(root *html.Node, base *url.URL)

// Normalizer extracts canonical text from email subtrees.
type Normalizer struct {
	logger   *zap.Logger
	text     *utils.TextProcessor
	maxChars int
	wrappers []RedirectWrapper
	stages   []stage
}

// NewNormalizer creates a Normalizer. A non-positive maxChars selects
// DefaultMaxChars; nil wrappers select DefaultWrappers.
func NewNormalizer(logger *zap.Logger, text *utils.TextProcessor, maxChars int, wrappers []RedirectWrapper) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if wrappers == nil {
		wrappers = DefaultWrappers
	}
	n := &Normalizer{
		logger:   logger,
		text:     text,
		maxChars: maxChars,
		wrappers: wrappers,
	}
	n.stages = []stage{stripDecorations, n.replaceImages, n.replaceLinks}
	return n
}

// FindBodyRoot returns the element holding the rendered email body, falling
// back to <body> and then to doc itself.
func FindBodyRoot(doc *html.Node) *html.Node {
	for _, sel := range dom.BodyCandidates {
		if n := dom.QueryFirst(doc, sel); n != nil {
			return n
		}
	}
	if body := dom.Body(doc); body != nil {
		return body
	}
	return doc
}

// Extract locates the email body inside doc and normalizes it. location is
// the page address relative references are resolved against.
func (n *Normalizer) Extract(doc *html.Node, location string) string {
	if doc == nil {
		return core.ExtractFailed
	}
	return n.Normalize(FindBodyRoot(doc), location)
}

// Normalize converts root's content into canonical text. root is never
// modified. Any fault during extraction yields core.ExtractFailed.
func (n *Normalizer) Normalize(root *html.Node, location string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("Email body extraction failed", zap.Any("panic", r))
			text = core.ExtractFailed
		}
	}()

	if root == nil {
		return core.ExtractFailed
	}

	work := dom.NewElement(atom.Div)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		work.AppendChild(dom.Clone(c))
	}

	base := parseBase(location)
	for _, st := range n.stages {
		st(work, base)
	}

	out := Cleanup(flatten(work))
	return n.text.ProcessText(out, n.maxChars)
}

func stripDecorations(root *html.Node, _ *url.URL) {
	for _, sel := range decorations {
		for _, node := range dom.QueryAll(root, sel) {
			if node != root {
				dom.Remove(node)
			}
		}
	}
}

func (n *Normalizer) replaceImages(root *html.Node, base *url.URL) {
	for _, img := range dom.QueryAll(root, imgSelector) {
		src := strings.TrimSpace(dom.Attr(img, "src"))
		if src == "" {
			src = strings.TrimSpace(dom.Attr(img, "data-src"))
		}

		marker := "[IMAGE]"
		if src != "" && !isOpaque(src) {
			if abs := resolve(base, src); abs != "" {
				marker = "[IMAGE:" + abs + "]"
			}
		}
		dom.ReplaceWithText(img, "\n\n"+marker+"\n\n")
	}
}

func (n *Normalizer) replaceLinks(root *html.Node, base *url.URL) {
	for _, a := range dom.QueryAll(root, linkSelector) {
		label := strings.Join(strings.Fields(dom.TextContent(a)), " ")
		if label == "" {
			label = "[no label]"
		}

		href := strings.TrimSpace(dom.Attr(a, "href"))
		if href == "" || strings.HasPrefix(href, "#") || isScriptURL(href) {
			dom.ReplaceWithText(a, " "+label+" ")
			continue
		}

		target := href
		if abs := resolve(base, href); abs != "" {
			target = abs
		}
		target = Unwrap(target, n.wrappers)
		dom.ReplaceWithText(a, " "+label+" ("+target+") ")
	}
}

// flatten serialises the tree to text. Block containers are set off by blank
// lines unless they are empty or merely wrap their parent's entire text.
func flatten(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walkChildren := func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				sb.WriteString("\n")
				return
			case atom.Div, atom.P:
				if !hasText(n) {
					return
				}
				if n.Parent != nil && n.Parent != root && onlyTextInParent(n) {
					walkChildren(n)
					return
				}
				sb.WriteString("\n\n")
				walkChildren(n)
				sb.WriteString("\n\n")
				return
			}
		}
		walkChildren(n)
	}
	walkChildren(root)
	return sb.String()
}

// hasText reports whether n contains any non-whitespace text.
func hasText(n *html.Node) bool {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data) != ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasText(c) {
			return true
		}
	}
	return false
}

// onlyTextInParent reports whether n carries all of its parent's text, i.e.
// every sibling is whitespace only.
func onlyTextInParent(n *html.Node) bool {
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s != n && hasText(s) {
			return false
		}
	}
	return true
}
