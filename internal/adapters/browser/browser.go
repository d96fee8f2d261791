// Package browser drives a live webmail tab through the Chrome DevTools
// Protocol. It implements core.Page and core.Surface and turns CDP DOM
// events into mutation signals for the change detector.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mikey/inbox-sentry/internal/config"
	"github.com/mikey/inbox-sentry/internal/dom"
)

// Browser is a controlled browser with one webmail tab
type Browser struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	page      *rod.Page
	logger    *zap.Logger
	mutations chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Open launches Chrome (or connects to a remote instance), opens the
// webmail URL and starts listening for DOM events
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Browser{
		logger:    logger,
		mutations: make(chan struct{}, 1),
	}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.UserDataDir != "" {
			l = l.UserDataDir(cfg.UserDataDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		wsURL = u
		b.launcher = l
		logger.Info("Launched local browser", zap.String("control_url", wsURL), zap.Bool("headless", cfg.Headless))
	} else {
		logger.Info("Connecting to remote browser", zap.String("control_url", wsURL))
	}

	b.browser = rod.New().ControlURL(wsURL)
	if err := b.browser.Connect(); err != nil {
		b.browser = nil
		b.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open %s: %w", cfg.URL, err)
	}
	b.page = page

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := page.Context(loadCtx).WaitLoad(); err != nil {
		logger.Warn("Page load wait timed out", zap.String("url", cfg.URL), zap.Error(err))
	}

	if err := b.watch(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// watch subscribes to CDP DOM events. Every structural change becomes one
// coalesced signal on the mutations channel.
func (b *Browser) watch() error {
	if err := (proto.DOMEnable{}).Call(b.page); err != nil {
		return fmt.Errorf("failed to enable DOM domain: %w", err)
	}
	// Nodes are only reported once the client has requested them.
	depth := -1
	if _, err := (proto.DOMGetDocument{Depth: &depth, Pierce: true}).Call(b.page); err != nil {
		return fmt.Errorf("failed to request document: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	wait := b.page.Context(ctx).EachEvent(
		func(e *proto.DOMChildNodeInserted) { b.notify() },
		func(e *proto.DOMChildNodeRemoved) { b.notify() },
		func(e *proto.DOMChildNodeCountUpdated) { b.notify() },
		func(e *proto.DOMCharacterDataModified) { b.notify() },
		func(e *proto.DOMDocumentUpdated) {
			b.notify()
			// The node map is discarded on document updates; request it again.
			go func() {
				if _, err := (proto.DOMGetDocument{Depth: &depth, Pierce: true}).Call(b.page); err != nil {
					b.logger.Debug("Failed to re-request document", zap.Error(err))
				}
			}()
		},
	)
	go wait()
	return nil
}

func (b *Browser) notify() {
	select {
	case b.mutations <- struct{}{}:
	default:
	}
}

// Mutations signals DOM changes; signals coalesce
func (b *Browser) Mutations() <-chan struct{} {
	return b.mutations
}

// Location returns the tab's current URL
func (b *Browser) Location(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

// Snapshot serialises the live DOM and parses it into a detached tree
func (b *Browser) Snapshot(ctx context.Context) (*html.Node, error) {
	markup, err := b.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	return dom.Parse(markup)
}

// Close stops the event listener and shuts the browser down
func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		if b.browser != nil {
			err = b.browser.Close()
		}
		if b.launcher != nil {
			b.launcher.Cleanup()
		}
		b.logger.Info("Browser closed")
	})
	return err
}
