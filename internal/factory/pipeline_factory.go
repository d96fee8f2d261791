package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/config"
	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/identity"
	"github.com/mikey/inbox-sentry/internal/linkguard"
	"github.com/mikey/inbox-sentry/internal/normalize"
	"github.com/mikey/inbox-sentry/internal/render"
	"github.com/mikey/inbox-sentry/internal/snapshot"
	"github.com/mikey/inbox-sentry/internal/trigger"
	"github.com/mikey/inbox-sentry/internal/utils"
)

// PipelineFactory creates the extraction and verdict components
type PipelineFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *PipelineFactory {
	return &PipelineFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateNormalizer creates the body text normalizer
func (f *PipelineFactory) CreateNormalizer() *normalize.Normalizer {
	return normalize.NewNormalizer(f.logger, f.textProcessor, f.cfg.GetInt("pipeline.max_chars"), normalize.DefaultWrappers)
}

// CreateSnapshotManager creates the snapshot manager for a page
func (f *PipelineFactory) CreateSnapshotManager(page core.Page, normalizer *normalize.Normalizer, resolver *identity.Resolver) *snapshot.Manager {
	return snapshot.NewManager(page, normalizer, resolver, f.logger)
}

// CreateLinkGuard creates the link guard with the configured trusted domains
func (f *PipelineFactory) CreateLinkGuard() *linkguard.Guard {
	return linkguard.NewGuard(f.cfg.GetStringSlice("linkguard.trusted_domains"), f.logger)
}

// CreateScanService assembles the verdict pipeline
func (f *PipelineFactory) CreateScanService(
	classifier core.Classifier,
	feedback core.FeedbackSender,
	store core.Store,
	snapshots core.SnapshotSource,
	users core.UserResolver,
	surface core.Surface,
	guard core.LinkGuard,
) *core.ScanService {
	return core.NewScanService(
		classifier,
		f.cfg.GetString("classifier.provider"),
		feedback,
		store,
		snapshots,
		users,
		surface,
		guard,
		render.Encode,
		f.logger,
		f.cfg.GetBool("pipeline.discard_stale"),
	)
}

// TriggerConfig returns the change detector timings
func (f *PipelineFactory) TriggerConfig() (trigger.Config, error) {
	tc, err := f.cfg.GetTrigger()
	if err != nil {
		return trigger.Config{}, err
	}
	return trigger.Config(tc), nil
}
