package factory

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/adapters/browser"
	"github.com/mikey/inbox-sentry/internal/config"
	"github.com/mikey/inbox-sentry/internal/dom"
)

// PageFactory creates the webmail views the pipeline reads from
type PageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPageFactory creates a new page factory
func NewPageFactory(cfg *config.Config, logger *zap.Logger) *PageFactory {
	return &PageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBrowser opens the configured webmail URL in a controlled browser
func (f *PageFactory) CreateBrowser() (*browser.Browser, error) {
	return browser.Open(context.Background(), f.cfg.GetBrowser(), f.logger)
}

// CreateDocumentFromFile loads a saved webmail page
func (f *PageFactory) CreateDocumentFromFile(path, location string) (*dom.Document, error) {
	markup, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page file: %w", err)
	}
	return dom.NewDocument(string(markup), location)
}

// CreateDocumentFromMessage lays out an RFC 5322 message as a webmail view
func (f *PageFactory) CreateDocumentFromMessage(path, location string) (*dom.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message file: %w", err)
	}
	defer file.Close()
	return dom.FromMessage(file, location)
}
