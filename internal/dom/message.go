package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/mnako/letters"
	"golang.org/x/net/html"
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// FromMessage lays out an RFC 5322 message as a minimal webmail view: the
// subject line, a sender element and the rendered body inside the content
// marker, so the normal extraction path can run over it.
func FromMessage(r io.Reader, location string) (*Document, error) {
	email, err := letters.ParseEmail(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	var b strings.Builder
	b.WriteString(`<html><body><div role="main">`)
	fmt.Fprintf(&b, `<h2 class="hP">%s</h2>`, html.EscapeString(email.Headers.Subject))

	if len(email.Headers.From) > 0 && email.Headers.From[0] != nil {
		from := email.Headers.From[0]
		name := from.Name
		if name == "" {
			name = from.Address
		}
		fmt.Fprintf(&b, `<span class="gD" email="%s" name="%s">%s</span>`,
			html.EscapeString(from.Address), html.EscapeString(from.Name), html.EscapeString(name))
	}

	b.WriteString(`<div class="a3s">`)
	switch {
	case strings.TrimSpace(email.HTML) != "":
		b.WriteString(email.HTML)
	default:
		for _, para := range strings.Split(lineBreaks.Replace(email.Text), "\n\n") {
			para = strings.Trim(para, "\n")
			if strings.TrimSpace(para) == "" {
				continue
			}
			fmt.Fprintf(&b, "<div>%s</div>", strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		}
	}
	b.WriteString(`</div></div></body></html>`)

	return NewDocument(b.String(), location)
}
