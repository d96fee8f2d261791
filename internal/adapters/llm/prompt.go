// Package llm holds the prompt and answer format shared by the LLM-backed
// classifier providers.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/utils"
)

// ErrNoJSON is returned when a model answer carries no JSON object
var ErrNoJSON = errors.New("no JSON object in model response")

// SystemPrompt primes chat models that accept a separate system role
const SystemPrompt = "You are an email security classifier. Respond only with JSON."

const promptFormat = `You are an email security classifier. Decide whether the following email is safe, suspicious or a phishing attempt.
Respond with a JSON object containing:
- verdict: one of "SAFE", "SUSPICIOUS", "PHISHING"
- score: number between 0 and 1 (higher means more likely to be malicious)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// Answer is the JSON object the model is asked to produce
type Answer struct {
	Verdict string   `json:"verdict"`
	Score   *float64 `json:"score"`
}

// BuildPrompt renders the classification prompt, cutting the body to
// maxBodySize characters
func BuildPrompt(tp *utils.TextProcessor, req core.ClassificationRequest, maxBodySize int) string {
	return fmt.Sprintf(promptFormat, req.Sender, req.Subject, tp.ProcessText(req.Content, maxBodySize))
}

// ParseAnswer extracts the verdict object from a model response. Models
// often wrap JSON in prose or code fences, so the outermost braces are
// tried when the whole text does not parse.
func ParseAnswer(text string) (*Answer, error) {
	var answer Answer
	if err := json.Unmarshal([]byte(text), &answer); err == nil {
		return &answer, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &answer, nil
}

// Result converts an answer into a classifier result
func (a *Answer) Result(provider string) *core.ClassificationResult {
	return &core.ClassificationResult{
		Verdict:  a.Verdict,
		Score:    a.Score,
		Provider: provider,
	}
}
