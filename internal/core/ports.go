package core

import (
	"context"

	"golang.org/x/net/html"
)

// Page is the live webmail view the pipeline reads from.
type Page interface {
	// Location returns the current navigable location.
	Location(ctx context.Context) (string, error)

	// Snapshot returns a detached parse of the current document. Callers may
	// mutate it freely.
	Snapshot(ctx context.Context) (*html.Node, error)
}

// Surface is where verdicts and notices are rendered. Every element it
// creates is extension-owned.
type Surface interface {
	// ShowBadge renders the verdict badge next to the subject line
	ShowBadge(ctx context.Context, v Verdict) error

	// ShowStatus shows a transient notice
	ShowStatus(ctx context.Context, s Status) error

	// RemoveAll removes every extension-owned element
	RemoveAll(ctx context.Context) error
}

// Classifier defines the interface for the remote classification service
type Classifier interface {
	// Classify submits email content and returns the raw verdict
	Classify(ctx context.Context, req ClassificationRequest) (*ClassificationResult, error)
}

// FeedbackSender delivers user reports to the feedback service
type FeedbackSender interface {
	SendFeedback(ctx context.Context, fb *Feedback) error
}

// CounterStore persists per-user, per-day scan bookkeeping
type CounterStore interface {
	// MarkOnce sets a dedup marker and reports whether it was newly set
	MarkOnce(ctx context.Context, user, day, key string) (bool, error)

	// IsMarked reports whether a dedup marker exists
	IsMarked(ctx context.Context, user, day, key string) (bool, error)

	// Increment adds one to a named counter and returns the new value
	Increment(ctx context.Context, user, day, counter string) (int64, error)

	// Stats returns the counters of one day
	Stats(ctx context.Context, user, day string) (*DailyStats, error)

	// Cleanup removes markers and counters past retention
	Cleanup(ctx context.Context) error
}

// ToggleStore persists whether scanning is enabled at all
type ToggleStore interface {
	Active(ctx context.Context) (bool, error)
	SetActive(ctx context.Context, active bool) error
}

// Store is a backend that holds both counters and the toggle
type Store interface {
	CounterStore
	ToggleStore
}

// SnapshotSource exposes the process-wide cached snapshot
type SnapshotSource interface {
	// Current returns the cached snapshot, capturing one lazily if unset
	Current(ctx context.Context) *Snapshot

	// Peek returns the cached snapshot without capturing; nil when unset
	Peek() *Snapshot
}

// UserResolver returns the token that namespaces persisted counters
type UserResolver interface {
	CurrentUser(ctx context.Context) string
}

// LinkGuard consumes the link-risk flag derived from a verdict
type LinkGuard interface {
	SetVerdict(label Label)
	Reset()
}
