package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/adapters/bedrock"
	"github.com/mikey/inbox-sentry/internal/adapters/gemini"
	"github.com/mikey/inbox-sentry/internal/adapters/openai"
	"github.com/mikey/inbox-sentry/internal/adapters/remote"
	"github.com/mikey/inbox-sentry/internal/config"
	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/utils"
)

// ClassifierFactory creates classifier backends
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Provider returns the configured provider name
func (f *ClassifierFactory) Provider() string {
	return f.cfg.GetString("classifier.provider")
}

// CreateClassifier creates a classifier based on the configuration
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	classifierCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}

	switch classifierCfg.Provider {
	case remote.ProviderName:
		return remote.NewClassifier(classifierCfg.Endpoint, classifierCfg.Timeout, f.logger), nil
	case bedrock.ProviderName:
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case gemini.ProviderName:
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case openai.ProviderName:
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", classifierCfg.Provider)
	}
}

// CreateFeedbackSender creates the feedback client
func (f *ClassifierFactory) CreateFeedbackSender() (core.FeedbackSender, error) {
	classifierCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}
	return remote.NewFeedbackClient(classifierCfg.FeedbackEndpoint, classifierCfg.Timeout, f.logger), nil
}
