package linkguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/dom"
)

func TestGuardArming(t *testing.T) {
	tests := []struct {
		label core.Label
		armed bool
	}{
		{core.LabelSafe, false},
		{core.LabelLegitimate, false},
		{core.LabelSuspicious, true},
		{core.LabelMalicious, true},
		{core.LabelPhishing, true},
		{core.LabelError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			g := NewGuard(nil, nil)
			g.SetVerdict(tt.label)
			assert.Equal(t, tt.armed, g.Armed())
		})
	}
}

func TestGuardResetDisarms(t *testing.T) {
	g := NewGuard(nil, nil)
	var events []bool
	g.OnChange(func(armed bool, _ core.Label) { events = append(events, armed) })

	g.SetVerdict(core.LabelPhishing)
	g.SetVerdict(core.LabelPhishing)
	g.Reset()

	assert.False(t, g.Armed())
	assert.Equal(t, []bool{true, false}, events)
}

func TestShouldIntercept(t *testing.T) {
	g := NewGuard([]string{" Example.COM "}, nil)

	assert.False(t, g.ShouldIntercept("https://evil.example/login", true), "disarmed")

	g.SetVerdict(core.LabelSuspicious)
	assert.True(t, g.ShouldIntercept("https://evil.example/login", true))
	assert.False(t, g.ShouldIntercept("https://evil.example/login", false), "outside email content")
	assert.False(t, g.ShouldIntercept("https://docs.example.com/a", true), "trusted subdomain")
	assert.True(t, g.ShouldIntercept("https://notexample.com/", true))
}

func TestWarning(t *testing.T) {
	g := NewGuard(nil, nil)

	g.SetVerdict(core.LabelPhishing)
	assert.Equal(t, Warning{Level: "PHISHING", Color: "#dc3545", URL: "https://x.example"}, g.Warning("https://x.example"))

	g.SetVerdict(core.LabelSuspicious)
	assert.Equal(t, "SUSPICIOUS", g.Warning("https://x.example").Level)
}

func TestProtectedLinks(t *testing.T) {
	doc, err := dom.Parse(`<html><body>
		<a href="https://mail.google.com/settings">Settings</a>
		<div class="adn"><div class="a3s">
			<a href="https://evil.example/login"> Log in </a>
			<a name="anchor">no href</a>
		</div></div>
	</body></html>`)
	require.NoError(t, err)

	links := ProtectedLinks(doc)

	require.Len(t, links, 1)
	assert.Equal(t, Link{Text: "Log in", Href: "https://evil.example/login"}, links[0])

	anchors := dom.QueryAll(doc, anchorSelector)
	require.Len(t, anchors, 2)
	assert.False(t, InEmailContent(anchors[0]))
	assert.True(t, InEmailContent(anchors[1]))
}
