package trigger

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/metrics"
)

// Config holds the detector timings.
type Config struct {
	SettleDelay    time.Duration
	Cooldown       time.Duration
	PollInterval   time.Duration
	URLSettleDelay time.Duration
	HostMarker     string
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		SettleDelay:    800 * time.Millisecond,
		Cooldown:       3 * time.Second,
		PollInterval:   time.Second,
		URLSettleDelay: time.Second,
		HostMarker:     "mail.google.com",
	}
}

// MutationSource signals that the page changed. Signals may coalesce.
type MutationSource interface {
	Mutations() <-chan struct{}
}

// Capturer is the snapshot side of the detector.
type Capturer interface {
	CaptureNow(ctx context.Context) *core.Snapshot
	Invalidate()
}

// Scanner runs the verdict pipeline for a snapshot.
type Scanner interface {
	Scan(ctx context.Context, snap *core.Snapshot) (core.Verdict, error)
}

// Switch reports whether scanning is enabled.
type Switch interface {
	IsActive(ctx context.Context) bool
}

// Detector drives the transition table from page mutations and a polling
// fallback. All state is owned by a single event loop goroutine; only the
// pipeline itself runs concurrently.
type Detector struct {
	page      core.Page
	mutations MutationSource
	surface   core.Surface
	snapshots Capturer
	scanner   Scanner
	guard     core.LinkGuard
	toggle    Switch
	config    Config
	logger    *zap.Logger

	machine   Machine
	settleC   <-chan time.Time
	cooldownC <-chan time.Time
	urlC      <-chan time.Time

	cancel context.CancelFunc
	done   chan struct{}
	runs   sync.WaitGroup
}

// NewDetector creates a new change detector. mutations may be nil, in which
// case only polling drives it.
func NewDetector(
	page core.Page,
	mutations MutationSource,
	surface core.Surface,
	snapshots Capturer,
	scanner Scanner,
	guard core.LinkGuard,
	toggle Switch,
	config Config,
	logger *zap.Logger,
) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		page:      page,
		mutations: mutations,
		surface:   surface,
		snapshots: snapshots,
		scanner:   scanner,
		guard:     guard,
		toggle:    toggle,
		config:    config,
		logger:    logger,
	}
}

// Start runs the detector in the background until Stop is called.
func (d *Detector) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		if err := d.Run(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("Change detector stopped", zap.Error(err))
		}
	}()

	d.logger.Info("Change detector started",
		zap.Duration("settle_delay", d.config.SettleDelay),
		zap.Duration("cooldown", d.config.Cooldown),
		zap.Duration("poll_interval", d.config.PollInterval))
	return nil
}

// Stop stops the event loop and waits for in-flight pipeline runs.
func (d *Detector) Stop() error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	<-d.done
	d.runs.Wait()
	d.logger.Info("Change detector stopped")
	return nil
}

// Run is the event loop. It returns when ctx is done.
func (d *Detector) Run(ctx context.Context) error {
	var mutations <-chan struct{}
	if d.mutations != nil {
		mutations = d.mutations.Mutations()
	}

	if location, err := d.page.Location(ctx); err == nil {
		d.machine.Seen(location)
	}

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	// An email may already be open.
	d.evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-mutations:
			d.evaluate(ctx)
		case <-ticker.C:
			d.poll(ctx)
		case <-d.urlC:
			d.urlC = nil
			d.evaluate(ctx)
		case <-d.settleC:
			d.settleC = nil
			d.runPipeline(ctx)
		case <-d.cooldownC:
			d.cooldownC = nil
			d.machine.Release()
		}
	}
}

func (d *Detector) active(ctx context.Context) bool {
	return d.toggle == nil || d.toggle.IsActive(ctx)
}

func (d *Detector) onHost(location string) bool {
	return d.config.HostMarker == "" || strings.Contains(location, d.config.HostMarker)
}

// evaluate reads the page and applies one observation.
func (d *Detector) evaluate(ctx context.Context) {
	if !d.active(ctx) {
		return
	}

	location, err := d.page.Location(ctx)
	if err != nil {
		d.logger.Warn("Failed to read page location", zap.Error(err))
		return
	}
	if !d.onHost(location) {
		return
	}

	doc, err := d.page.Snapshot(ctx)
	if err != nil {
		d.logger.Warn("Failed to read page", zap.Error(err))
		return
	}

	switch action := d.machine.Step(Observe(doc, location)); action {
	case ActionOpen:
		d.logger.Info("New email detected", zap.String("url", location))
		metrics.RecordTransition(action.String())
		d.reset(ctx)
		d.settleC = time.After(d.config.SettleDelay)
		d.cooldownC = time.After(d.config.Cooldown)
	case ActionClose:
		d.logger.Info("Email view closed")
		metrics.RecordTransition(action.String())
		d.reset(ctx)
	}
}

// poll is the fallback for navigations that produce no observed mutation.
func (d *Detector) poll(ctx context.Context) {
	if !d.active(ctx) {
		return
	}

	location, err := d.page.Location(ctx)
	if err != nil {
		d.logger.Warn("Failed to read page location", zap.Error(err))
		return
	}
	if !d.machine.Seen(location) || !d.onHost(location) {
		return
	}

	d.logger.Debug("Location changed", zap.String("url", location))
	metrics.RecordTransition("navigate")
	d.snapshots.Invalidate()
	if d.guard != nil {
		d.guard.Reset()
	}
	d.urlC = time.After(d.config.URLSettleDelay)
}

func (d *Detector) reset(ctx context.Context) {
	d.snapshots.Invalidate()
	if d.guard != nil {
		d.guard.Reset()
	}
	if err := d.surface.RemoveAll(ctx); err != nil {
		d.logger.Warn("Failed to remove extension elements", zap.Error(err))
	}
}

// runPipeline captures synchronously, before anything else is written into
// the page, then classifies in the background.
func (d *Detector) runPipeline(ctx context.Context) {
	if !d.active(ctx) {
		return
	}

	snap := d.snapshots.CaptureNow(ctx)
	if !snap.HasEmail() {
		d.logger.Debug("Email closed before it settled", zap.String("url", snap.URL))
		return
	}

	d.runs.Add(1)
	go func() {
		defer d.runs.Done()
		if _, err := d.scanner.Scan(ctx, snap); err != nil {
			d.logger.Debug("Scan finished without a verdict",
				zap.String("snapshot_id", snap.ID),
				zap.Error(err))
		}
	}()
}
