package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
)

// ErrClassifierStatus is returned when the service answers with a non-2xx status
var ErrClassifierStatus = errors.New("classifier returned an error status")

// ProviderName labels metrics and results produced by this adapter
const ProviderName = "http"

// Classifier posts email content to the detection endpoint
type Classifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

type detectRequest struct {
	Content core.ClassificationRequest `json:"content"`
}

type detectResponse struct {
	Verdict string          `json:"verdict"`
	Score   json.RawMessage `json:"score"`
}

// NewClassifier creates a classifier for the given endpoint
func NewClassifier(endpoint string, timeout time.Duration, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Classify submits the request and decodes the verdict
func (c *Classifier) Classify(ctx context.Context, req core.ClassificationRequest) (*core.ClassificationResult, error) {
	body, err := json.Marshal(detectRequest{Content: req})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrClassifierStatus, resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	c.logger.Debug("Classifier answered",
		zap.String("verdict", decoded.Verdict),
		zap.ByteString("score", decoded.Score))

	return &core.ClassificationResult{
		Verdict:    decoded.Verdict,
		Score:      parseScore(decoded.Score),
		Provider:   ProviderName,
		AnalyzedAt: time.Now(),
	}, nil
}

// parseScore returns nil unless raw is a JSON number
func parseScore(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return nil
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil
	}
	return &score
}
