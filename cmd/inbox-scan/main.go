package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/adapters/cli"
	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/di"
	"github.com/mikey/inbox-sentry/internal/dom"
	"github.com/mikey/inbox-sentry/internal/linkguard"
	"github.com/mikey/inbox-sentry/internal/ports"
	"github.com/mikey/inbox-sentry/internal/render"
	"github.com/mikey/inbox-sentry/internal/snapshot"
)

// errNoEmail is returned when the input holds no open email
var errNoEmail = errors.New("no email found in input")

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", dig.RootCause(err))
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	page *dom.Document,
	snapshots *snapshot.Manager,
	service *core.ScanService,
	presenter *cli.Presenter,
	guard *linkguard.Guard,
	classifier core.Classifier,
	store core.Store,
) error {
	defer logger.Sync()
	defer closeAll(logger, classifier, store)

	ctx := context.Background()

	// Toggle only
	if flags.Pause || flags.Resume {
		if err := service.SetActive(ctx, flags.Resume); err != nil {
			return err
		}
		state := "paused"
		if flags.Resume {
			state = "active"
		}
		fmt.Printf("Scanning is now %s\n", state)
		return nil
	}

	if !service.IsActive(ctx) {
		fmt.Printf("Scanning is paused; use -resume to enable it\n")
		return nil
	}

	snap := snapshots.CaptureNow(ctx)
	if !snap.HasEmail() {
		return errNoEmail
	}
	presenter.PrintSnapshot(snap)

	verdict, err := service.Scan(ctx, snap)
	if err != nil {
		return err
	}

	if flags.ShowHTML {
		presenter.PrintHTML(render.Encode(snap.BodyText))
	}

	if guard.Armed() {
		doc, err := page.Snapshot(ctx)
		if err != nil {
			return err
		}
		var protected []string
		for _, l := range linkguard.ProtectedLinks(doc) {
			if guard.ShouldIntercept(l.Href, true) {
				protected = append(protected, l.Href)
			}
		}
		presenter.PrintLinks(protected)
	}

	if flags.Feedback != "" {
		if err := service.SubmitFeedback(ctx, flags.Feedback, verdict); err != nil {
			logger.Error("Failed to submit feedback", zap.Error(err))
		}
	}

	if flags.Stats {
		stats, err := service.DailyStats(ctx)
		if err != nil {
			return err
		}
		presenter.PrintStats(stats)
	}

	return nil
}

// closeAll releases the classifier and the store
func closeAll(logger *zap.Logger, classifier core.Classifier, store core.Store) {
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
	if stopper, ok := store.(ports.Stopper); ok {
		stopper.Stop()
	}
}
