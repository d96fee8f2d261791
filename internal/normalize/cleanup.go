package normalize

import (
	"regexp"
	"strings"
)

var (
	// Unicode space separators, line/paragraph separators and zero-width marks.
	invisibleRe  = regexp.MustCompile(`[\p{Zs}\x{2028}\x{2029}\x{200b}-\x{200d}\x{2060}\x{feff}]`)
	spaceRunRe   = regexp.MustCompile(`[ \t\f\v\r]+`)
	lineEdgeRe   = regexp.MustCompile(` ?\n ?`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)

	// Webmail interface text that leaks into the rendered body.
	chromePhrases = []*regexp.Regexp{
		regexp.MustCompile(`Download\s*Add\s+to\s+Drive`),
		regexp.MustCompile(`Add\s+to\s+Drive`),
		regexp.MustCompile(`Save\s+to\s+Photos`),
		regexp.MustCompile(`\[Message clipped\]`),
		regexp.MustCompile(`View entire message`),
	}
)

// Cleanup canonicalises whitespace and strips interface chrome. It is
// idempotent: Cleanup(Cleanup(s)) == Cleanup(s).
func Cleanup(s string) string {
	s = invisibleRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	for _, re := range chromePhrases {
		s = re.ReplaceAllString(s, " ")
	}
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = lineEdgeRe.ReplaceAllString(s, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
