package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/utils"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		verdict string
		score   *float64
	}{
		{"plain", `{"verdict":"SAFE","score":0.05}`, "SAFE", ptr(0.05)},
		{"prose", "Here you go:\n{\"verdict\": \"PHISHING\", \"score\": 0.97}\nStay safe.", "PHISHING", ptr(0.97)},
		{"fenced", "```json\n{\"verdict\":\"SUSPICIOUS\",\"score\":0.6}\n```", "SUSPICIOUS", ptr(0.6)},
		{"no score", `{"verdict":"SAFE"}`, "SAFE", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnswer(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, a.Verdict)
			assert.Equal(t, tt.score, a.Score)
		})
	}
}

func TestParseAnswerFailures(t *testing.T) {
	_, err := ParseAnswer("I cannot help with that")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseAnswer("{not json}")
	assert.Error(t, err)
}

func TestBuildPromptTruncatesBody(t *testing.T) {
	tp := utils.NewTextProcessor(nil)
	req := core.ClassificationRequest{Sender: "a@b.example", Subject: "Hi", Content: strings.Repeat("x", 50)}

	prompt := BuildPrompt(tp, req, 10)

	assert.Contains(t, prompt, "From: a@b.example")
	assert.Contains(t, prompt, "Subject: Hi")
	assert.Contains(t, prompt, strings.Repeat("x", 10)+utils.TruncatedMarker)
	assert.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestAnswerResult(t *testing.T) {
	r := (&Answer{Verdict: "PHISHING", Score: ptr(0.9)}).Result("openai")

	assert.Equal(t, "openai", r.Provider)
	assert.Equal(t, core.LabelPhishing, core.VerdictFromResult(r, "s").Label)
}

func ptr(f float64) *float64 { return &f }
