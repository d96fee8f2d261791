package dom

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/mikey/inbox-sentry/internal/core"
)

const view = `<html><body><div role="main">
<h2 class="hP">Hello</h2>
<div class="a3s"><p>Body <a href="https://x.example">x</a></p></div>
</div></body></html>`

func TestCloneIsDetached(t *testing.T) {
	doc, err := Parse(view)
	require.NoError(t, err)

	c := Clone(doc)
	Remove(QueryFirst(c, ContentMarker))

	assert.Nil(t, QueryFirst(c, ContentMarker))
	assert.NotNil(t, QueryFirst(doc, ContentMarker))
}

func TestTreeHelpers(t *testing.T) {
	doc, err := Parse(`<div id="a" data-x="1"><span>one</span> <b>two</b></div>`)
	require.NoError(t, err)

	div := FindByID(doc, "a")
	require.NotNil(t, div)
	assert.Equal(t, "1", Attr(div, "data-x"))
	assert.True(t, HasAttr(div, "data-x"))
	assert.False(t, HasAttr(div, "data-y"))
	assert.Equal(t, "one two", TextContent(div))
	assert.Equal(t, "<span>one</span> <b>two</b>", InnerHTML(div))

	SetAttr(div, "data-x", "2")
	assert.Equal(t, "2", Attr(div, "data-x"))

	ReplaceWithText(QueryFirst(div, MustSelector("b")), "three")
	assert.Equal(t, "one three", TextContent(div))
	assert.Len(t, QueryAll(doc, MustSelector("span, div")), 2)
}

func TestDocumentSurface(t *testing.T) {
	d, err := NewDocument(view, "https://mail.google.com/#inbox/1")
	require.NoError(t, err)
	ctx := context.Background()
	score := 0.42

	require.NoError(t, d.ShowBadge(ctx, core.Verdict{Label: core.LabelSuspicious, Score: &score}))
	require.NoError(t, d.ShowBadge(ctx, core.Verdict{Label: core.LabelSuspicious, Score: &score}))
	require.NoError(t, d.ShowStatus(ctx, core.Status{Message: "ok", OK: true}))

	snap, err := d.Snapshot(ctx)
	require.NoError(t, err)
	badges := QueryAll(snap, ExtensionElements)
	assert.Len(t, badges, 2)
	badge := FindByID(snap, BadgeID)
	require.NotNil(t, badge)
	assert.True(t, SubjectMarker.Match(badge.Parent))
	assert.Equal(t, "SUSPICIOUS", Attr(badge, "data-verdict"))
	assert.Equal(t, "0.42", Attr(badge, "data-score"))
	assert.Equal(t, "status-ok", Attr(FindByID(snap, StatusID), "class"))

	require.NoError(t, d.RemoveAll(ctx))
	snap, err = d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, QueryAll(snap, ExtensionElements))
}

func TestDocumentSignalsMutations(t *testing.T) {
	d, err := NewDocument(view, "u1")
	require.NoError(t, err)

	d.Mutate(func(root *html.Node) {})
	d.Mutate(func(root *html.Node) {})

	select {
	case <-d.Mutations():
	default:
		t.Fatal("expected a mutation signal")
	}
	select {
	case <-d.Mutations():
		t.Fatal("signals should coalesce")
	default:
	}

	d.Navigate("u2")
	loc, _ := d.Location(context.Background())
	assert.Equal(t, "u2", loc)
	select {
	case <-d.Mutations():
		t.Fatal("navigation alone is not a mutation")
	default:
	}
}

const plainMessage = "From: \"IT Desk\" <it@corp.example>\r\n" +
	"To: alice@corp.example\r\n" +
	"Subject: Password expiry <urgent>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Your password expires today.\r\n" +
	"\r\n" +
	"Visit https://corp-login.example/reset now.\r\n"

const htmlMessage = "From: billing@vendor.example\r\n" +
	"Subject: Invoice\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Pay <a href=\"https://pay.vendor.example\">here</a></p>\r\n"

func TestFromMessagePlainText(t *testing.T) {
	d, err := FromMessage(strings.NewReader(plainMessage), "file:///tmp/a.eml")
	require.NoError(t, err)

	snap, err := d.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Password expiry <urgent>", TextContent(QueryFirst(snap, SubjectMarker)))
	sender := QueryFirst(snap, MustSelector("span[email]"))
	require.NotNil(t, sender)
	assert.Equal(t, "it@corp.example", Attr(sender, "email"))
	assert.Equal(t, "IT Desk", TextContent(sender))

	content := QueryFirst(snap, ContentMarker)
	require.NotNil(t, content)
	assert.Contains(t, TextContent(content), "Your password expires today.")

	var paras []string
	for c := content.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "div" {
			paras = append(paras, TextContent(c))
		}
	}
	assert.Equal(t, []string{
		"Your password expires today.",
		"Visit https://corp-login.example/reset now.",
	}, paras)
}

func TestFromMessageBareCarriageReturns(t *testing.T) {
	msg := strings.ReplaceAll(plainMessage, "today.\r\n\r\nVisit", "today.\r\rVisit")
	d, err := FromMessage(strings.NewReader(msg), "")
	require.NoError(t, err)

	snap, err := d.Snapshot(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, InnerHTML(QueryFirst(snap, ContentMarker)), "\r")
}

func TestFromMessageHTML(t *testing.T) {
	d, err := FromMessage(strings.NewReader(htmlMessage), "")
	require.NoError(t, err)

	snap, err := d.Snapshot(context.Background())
	require.NoError(t, err)

	link := QueryFirst(QueryFirst(snap, ContentMarker), MustSelector("a[href]"))
	require.NotNil(t, link)
	assert.Equal(t, "https://pay.vendor.example", Attr(link, "href"))
	assert.Equal(t, "billing@vendor.example", TextContent(QueryFirst(snap, MustSelector("span[email]"))))
}
