package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "unbounded", tp.TruncateText("unbounded", 0))
	assert.Equal(t, "héllo"+TruncatedMarker, tp.TruncateText("héllo wörld", 5))

	out := tp.TruncateText(strings.Repeat("€", 20), 4)
	assert.Equal(t, strings.Repeat("€", 4)+TruncatedMarker, out)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "valid ✓", tp.SanitizeUTF8("valid ✓"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "ab"+TruncatedMarker, tp.ProcessText("a\xffbcd", 2))
}
