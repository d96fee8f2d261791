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

// ErrFeedbackStatus is returned when the feedback service rejects a report
var ErrFeedbackStatus = errors.New("feedback service returned an error status")

// FeedbackClient delivers user reports
type FeedbackClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFeedbackClient creates a feedback client for the given endpoint
func NewFeedbackClient(endpoint string, timeout time.Duration, logger *zap.Logger) *FeedbackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SendFeedback posts one report
func (c *FeedbackClient) SendFeedback(ctx context.Context, fb *core.Feedback) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feedback request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrFeedbackStatus, resp.StatusCode)
	}

	c.logger.Info("Feedback submitted",
		zap.String("report_type", fb.ReportType),
		zap.String("original_prediction", fb.OriginalPrediction))
	return nil
}
