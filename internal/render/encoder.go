// Package render turns canonical email text back into a small, safe HTML
// fragment for redisplay.
package render

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mikey/inbox-sentry/internal/core"
)

const (
	wrapperStyle  = "font-family: Arial, Helvetica, sans-serif; font-size: 13px; line-height: 1.6; color: #222; max-width: 100%; word-wrap: break-word"
	linkStyle     = "color: #1a73e8; text-decoration: underline"
	imageRefStyle = "display: inline-block; padding: 4px 8px; background: #e3f2fd; border: 1px solid #2196f3; border-radius: 12px; font-size: 11px; color: #1976d2; margin: 0 4px"
	imageNoStyle  = "display: inline-block; padding: 4px 8px; background: #f5f5f5; border: 1px solid #ccc; border-radius: 12px; font-size: 11px; color: #666; margin: 0 4px"
)

var (
	// Existing references pass through, so literal "&lt;" text displays as "<".
	entityRe   = regexp.MustCompile(`^&(?:[a-zA-Z][a-zA-Z0-9]{1,31}|#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6});`)
	linkRe     = regexp.MustCompile(`\((https?://[^\s()<>"']+)\)`)
	imageRefRe = regexp.MustCompile(`\[IMAGE:[^\]\s]+\]`)
	imageNoRe  = regexp.MustCompile(`\[IMAGE\]`)
	sentenceRe = regexp.MustCompile(`\. ([A-Z])`)
	colonRe    = regexp.MustCompile(`: ([A-Z])`)
	classRe    = regexp.MustCompile(`^[a-z][a-z-]*$`)
	styleRe    = regexp.MustCompile(`^[#a-zA-Z0-9 .,%()-]+$`)
)

// Encoder converts normalised text into display HTML.
type Encoder struct {
	policy *bluemonday.Policy
}

// NewEncoder creates an Encoder with the redisplay sanitisation policy.
func NewEncoder() *Encoder {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "span", "br")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(classRe).OnElements("div", "span", "a")
	p.AllowStyles(
		"display", "padding", "background", "border", "border-radius", "font-size",
		"font-family", "line-height", "color", "margin", "max-width", "word-wrap",
		"text-decoration",
	).Matching(styleRe).OnElements("div", "span", "a")
	return &Encoder{policy: p}
}

var defaultEncoder = NewEncoder()

// Encode renders text with the default encoder.
func Encode(text string) string {
	return defaultEncoder.Encode(text)
}

// Encode renders canonical text as a self-contained HTML fragment. The
// metacharacters are escaped before any markup is introduced, so nothing
// from the original email survives as markup.
func (e *Encoder) Encode(text string) string {
	if strings.TrimSpace(text) == "" || text == core.ExtractFailed {
		return core.ExtractFailed
	}

	out := Escape(text)
	out = sentenceRe.ReplaceAllString(out, ".<br><br>${1}")
	out = colonRe.ReplaceAllString(out, ":<br><br>${1}")
	out = strings.ReplaceAll(out, "\n", "<br>")
	out = linkify(out)
	out = imageRefRe.ReplaceAllLiteralString(out,
		`<span class="image-ref" style="`+imageRefStyle+`">📷 Image</span>`)
	out = imageNoRe.ReplaceAllLiteralString(out,
		`<span class="image-missing" style="`+imageNoStyle+`">📷 Image</span>`)

	return e.policy.Sanitize(`<div class="email-body" style="` + wrapperStyle + `">` + out + `</div>`)
}

// Escape replaces the five HTML metacharacters with entities. An ampersand
// that already starts a character reference is left alone, so
// Escape(Escape(s)) == Escape(s).
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if ref := entityRe.FindString(s[i:]); ref != "" {
				sb.WriteString(ref)
				i += len(ref) - 1
				continue
			}
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '"':
			sb.WriteString("&#34;")
		case '\'':
			sb.WriteString("&#39;")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// linkify turns "label (https://target)" back into anchors. The label runs
// back to the previous line break, sentence end or anchor.
func linkify(s string) string {
	matches := linkRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		segment := s[last:m[0]]
		href := s[m[2]:m[3]]

		cut := labelStart(segment)
		rest := segment[cut:]
		trimmed := strings.TrimLeft(rest, " \t")
		label := strings.TrimRight(trimmed, " \t")
		if label == "" {
			label = href
		}

		sb.WriteString(segment[:cut])
		sb.WriteString(rest[:len(rest)-len(trimmed)])
		sb.WriteString(`<a href="` + href + `" style="` + linkStyle + `">` + label + `</a>`)
		last = m[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func labelStart(segment string) int {
	cut := 0
	for _, sep := range []string{"<br>", ". ", ": ", "</a>"} {
		if i := strings.LastIndex(segment, sep); i >= 0 && i+len(sep) > cut {
			cut = i + len(sep)
		}
	}
	return cut
}
