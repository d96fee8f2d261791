package snapshot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
	"github.com/mikey/inbox-sentry/internal/identity"
	"github.com/mikey/inbox-sentry/internal/normalize"
)

const (
	emailURL  = "https://mail.google.com/mail/u/0/#inbox/FMfcg1"
	emailPage = `<html><body>
		<h2 class="hP">Your parcel is waiting</h2>
		<div class="gD"><span email="courier@parcels.example">Courier</span></div>
		<div class="a3s"><p>Pay the customs fee at <a href="https://pay.example/fee">this page</a>.</p></div>
	</body></html>`
)

func newManager(t *testing.T, markup string) (*Manager, *dom.Document) {
	t.Helper()
	doc, err := dom.NewDocument(markup, emailURL)
	require.NoError(t, err)
	m := NewManager(doc, normalize.NewNormalizer(nil, nil, 0, nil), identity.NewResolver(nil), nil)
	return m, doc
}

func TestCaptureNow(t *testing.T) {
	m, _ := newManager(t, emailPage)

	snap := m.CaptureNow(context.Background())

	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, emailURL, snap.URL)
	assert.Equal(t, "Your parcel is waiting", snap.Subject)
	assert.Equal(t, "courier@parcels.example", snap.Sender)
	assert.Equal(t, "Pay the customs fee at this page (https://pay.example/fee) .", snap.BodyText)
	assert.Contains(t, snap.BodyHTML, `<a href="https://pay.example/fee">`)
	assert.Same(t, snap, m.Peek())
}

func TestCaptureWithNoEmailOpen(t *testing.T) {
	m, _ := newManager(t, `<html><body><div role="main">Inbox (3)</div></body></html>`)

	snap := m.CaptureNow(context.Background())

	assert.Equal(t, core.UnknownSubject, snap.Subject)
	assert.Equal(t, core.UnknownSender, snap.Sender)
	assert.Empty(t, snap.BodyText)
	assert.Empty(t, snap.BodyHTML)
}

func TestCachedSnapshotIsNotContaminated(t *testing.T) {
	m, page := newManager(t, emailPage)
	ctx := context.Background()

	captured := m.CaptureNow(ctx)
	body, markup := captured.BodyText, captured.BodyHTML

	require.NoError(t, page.ShowBadge(ctx, core.Verdict{Label: core.LabelPhishing}))
	require.NoError(t, page.ShowStatus(ctx, core.Status{Message: "Report sent", OK: true}))
	page.Mutate(func(root *html.Node) {
		content := dom.QueryFirst(root, dom.ContentMarker)
		content.AppendChild(dom.NewElement(atom.Div, "id", dom.PopupID))
	})

	cached := m.Current(ctx)
	assert.Same(t, captured, cached)
	assert.Equal(t, body, cached.BodyText)
	assert.Equal(t, markup, cached.BodyHTML)
	assert.Equal(t, "Your parcel is waiting", cached.Subject)
}

func TestRecaptureIgnoresInjectedElements(t *testing.T) {
	m, page := newManager(t, emailPage)
	ctx := context.Background()

	first := m.CaptureNow(ctx)
	require.NoError(t, page.ShowBadge(ctx, core.Verdict{Label: core.LabelSafe}))

	second := m.CaptureNow(ctx)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Subject, second.Subject)
	assert.Equal(t, first.BodyText, second.BodyText)
}

func TestInvalidateAndLazyCurrent(t *testing.T) {
	m, _ := newManager(t, emailPage)
	ctx := context.Background()

	assert.Nil(t, m.Peek())
	lazy := m.Current(ctx)
	require.NotNil(t, lazy)

	m.Invalidate()
	m.Invalidate()
	assert.Nil(t, m.Peek())

	assert.NotEqual(t, lazy.ID, m.Current(ctx).ID)
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	m, _ := newManager(t, emailPage)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.CaptureNow(ctx)
			m.Invalidate()
		}()
		go func() {
			defer wg.Done()
			if snap := m.Peek(); snap != nil {
				assert.Equal(t, "Your parcel is waiting", snap.Subject)
				assert.NotEmpty(t, snap.BodyText)
			}
		}()
	}
	wg.Wait()
}
