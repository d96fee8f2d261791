package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/adapters/browser"
	"github.com/mikey/inbox-sentry/internal/config"
	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/factory"
	"github.com/mikey/inbox-sentry/internal/identity"
	"github.com/mikey/inbox-sentry/internal/linkguard"
	"github.com/mikey/inbox-sentry/internal/logging"
	"github.com/mikey/inbox-sentry/internal/normalize"
	"github.com/mikey/inbox-sentry/internal/ports"
	"github.com/mikey/inbox-sentry/internal/snapshot"
	"github.com/mikey/inbox-sentry/internal/trigger"
	"github.com/mikey/inbox-sentry/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the browser-driving daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewPageFactory); err != nil {
		return nil, err
	}

	// Register the controlled browser as page, surface and mutation source
	if err := container.Provide(func(f *factory.PageFactory) (*browser.Browser, error) {
		return f.CreateBrowser()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(b *browser.Browser) core.Page { return b }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(b *browser.Browser) core.Surface { return b }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(b *browser.Browser) trigger.MutationSource { return b }); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Bind the link guard to the page
	if err := container.Decorate(func(g *linkguard.Guard, b *browser.Browser) *linkguard.Guard {
		b.BindLinkGuard(g)
		return g
	}); err != nil {
		return nil, err
	}

	// Register email watcher
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		page core.Page,
		mutations trigger.MutationSource,
		surface core.Surface,
		snapshots *snapshot.Manager,
		service *core.ScanService,
		guard *linkguard.Guard,
		logger *zap.Logger,
	) (ports.EmailWatcher, error) {
		tc, err := f.TriggerConfig()
		if err != nil {
			return nil, err
		}
		return trigger.NewDetector(page, mutations, surface, snapshots, service, guard, service, tc, logger), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers everything between a core.Page and the scan
// service; shared by the daemon and the CLI
func providePipeline(container *dig.Container) error {
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewPipelineFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register classifier and feedback client
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.FeedbackSender, error) {
		return f.CreateFeedbackSender()
	}); err != nil {
		return err
	}

	// Register counter store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}

	// Register extraction components
	if err := container.Provide(func(f *factory.PipelineFactory) *normalize.Normalizer {
		return f.CreateNormalizer()
	}); err != nil {
		return err
	}
	if err := container.Provide(identity.NewResolver); err != nil {
		return err
	}
	if err := container.Provide(identity.NewPageResolver); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.PipelineFactory, page core.Page, n *normalize.Normalizer, r *identity.Resolver) *snapshot.Manager {
		return f.CreateSnapshotManager(page, n, r)
	}); err != nil {
		return err
	}

	// Register link guard
	if err := container.Provide(func(f *factory.PipelineFactory) *linkguard.Guard {
		return f.CreateLinkGuard()
	}); err != nil {
		return err
	}

	// Register scan service
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		classifier core.Classifier,
		feedback core.FeedbackSender,
		store core.Store,
		snapshots *snapshot.Manager,
		users *identity.PageResolver,
		surface core.Surface,
		guard *linkguard.Guard,
	) *core.ScanService {
		return f.CreateScanService(classifier, feedback, store, snapshots, users, surface, guard)
	}); err != nil {
		return err
	}

	return nil
}
