package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-sentry/internal/adapters/store"
	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/render"
)

type stubClassifier struct {
	verdict string
	score   *float64
	err     error
	calls   int
}

func (c *stubClassifier) Classify(ctx context.Context, req core.ClassificationRequest) (*core.ClassificationResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &core.ClassificationResult{Verdict: c.verdict, Score: c.score, Provider: "stub"}, nil
}

type stubFeedback struct {
	sent []*core.Feedback
	err  error
}

func (f *stubFeedback) SendFeedback(ctx context.Context, fb *core.Feedback) error {
	f.sent = append(f.sent, fb)
	return f.err
}

type stubSurface struct {
	mu       sync.Mutex
	badges   []core.Verdict
	statuses []core.Status
}

func (s *stubSurface) ShowBadge(ctx context.Context, v core.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append(s.badges, v)
	return nil
}

func (s *stubSurface) ShowStatus(ctx context.Context, st core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
	return nil
}

func (s *stubSurface) RemoveAll(ctx context.Context) error { return nil }

type stubSnapshots struct {
	current *core.Snapshot
}

func (s *stubSnapshots) Current(context.Context) *core.Snapshot { return s.current }

func (s *stubSnapshots) Peek() *core.Snapshot { return s.current }

type fixedUser string

func (u fixedUser) CurrentUser(context.Context) string { return string(u) }

type stubGuard struct {
	label core.Label
}

func (g *stubGuard) SetVerdict(l core.Label) { g.label = l }

func (g *stubGuard) Reset() { g.label = "" }

// failingStore fails every operation.
type failingStore struct{}

var errStore = errors.New("disk full")

func (failingStore) MarkOnce(context.Context, string, string, string) (bool, error) {
	return false, errStore
}
func (failingStore) IsMarked(context.Context, string, string, string) (bool, error) {
	return false, errStore
}
func (failingStore) Increment(context.Context, string, string, string) (int64, error) {
	return 0, errStore
}
func (failingStore) Stats(context.Context, string, string) (*core.DailyStats, error) {
	return nil, errStore
}
func (failingStore) Cleanup(context.Context) error { return errStore }
func (failingStore) Active(context.Context) (bool, error) { return false, errStore }
func (failingStore) SetActive(context.Context, bool) error { return errStore }

type harness struct {
	service    *core.ScanService
	classifier *stubClassifier
	feedback   *stubFeedback
	surface    *stubSurface
	snapshots  *stubSnapshots
	guard      *stubGuard
	store      core.Store
}

func newHarness(t *testing.T, st core.Store) *harness {
	t.Helper()
	if st == nil {
		mem := store.NewMemoryStore(nil, 0, 0)
		t.Cleanup(mem.Stop)
		st = mem
	}
	score := 0.91
	h := &harness{
		classifier: &stubClassifier{verdict: "phishing", score: &score},
		feedback:   &stubFeedback{},
		surface:    &stubSurface{},
		snapshots:  &stubSnapshots{},
		guard:      &stubGuard{},
		store:      st,
	}
	h.service = core.NewScanService(h.classifier, "stub", h.feedback, st, h.snapshots,
		fixedUser("alice"), h.surface, h.guard, render.Encode, nil, true)
	return h
}

func snap(id, url string) *core.Snapshot {
	return &core.Snapshot{
		ID:       id,
		URL:      url,
		Subject:  "Reset your password",
		Sender:   "it@corp.example",
		BodyText: "Click here (https://evil.example/reset)",
		BodyHTML: `<a href="https://evil.example/reset">Click here</a>`,
	}
}

func (h *harness) scan(t *testing.T, s *core.Snapshot) core.Verdict {
	t.Helper()
	h.snapshots.current = s
	v, err := h.service.Scan(context.Background(), s)
	require.NoError(t, err)
	return v
}

func TestScanDeliversVerdict(t *testing.T) {
	h := newHarness(t, nil)

	v := h.scan(t, snap("s1", "https://mail.google.com/#inbox/1"))

	assert.Equal(t, core.LabelPhishing, v.Label)
	assert.Equal(t, "0.91", v.ScoreText())
	require.Len(t, h.surface.badges, 1)
	assert.Equal(t, "s1", h.surface.badges[0].SnapshotID)
	assert.Equal(t, core.LabelPhishing, h.guard.label)
}

func TestScanCountsEachEmailOncePerDay(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.scan(t, snap("s1", "https://mail.google.com/#inbox/1"))
	h.scan(t, snap("s2", "https://mail.google.com/#inbox/1"))

	stats, err := h.service.DailyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Scans)
	assert.Equal(t, int64(1), stats.Phishing)

	h.scan(t, snap("s3", "https://mail.google.com/#inbox/2"))

	stats, err = h.service.DailyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Scans)
	assert.Equal(t, int64(2), stats.Phishing)
	assert.Equal(t, "alice", stats.User)
	assert.Equal(t, 3, h.classifier.calls)
}

func TestScanCategoryMapping(t *testing.T) {
	tests := []struct {
		verdict  string
		expected core.DailyStats
	}{
		{"SAFE", core.DailyStats{Scans: 1, Safe: 1}},
		{"legitimate", core.DailyStats{Scans: 1, Safe: 1}},
		{"SUSPICIOUS", core.DailyStats{Scans: 1, Malicious: 1}},
		{"MALICIOUS", core.DailyStats{Scans: 1, Malicious: 1}},
		{"PHISHING", core.DailyStats{Scans: 1, Phishing: 1}},
		{"banana", core.DailyStats{Scans: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.verdict, func(t *testing.T) {
			h := newHarness(t, nil)
			h.classifier.verdict = tt.verdict
			h.scan(t, snap("s1", "u1"))

			stats, err := h.service.DailyStats(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected.Scans, stats.Scans)
			assert.Equal(t, tt.expected.Safe, stats.Safe)
			assert.Equal(t, tt.expected.Malicious, stats.Malicious)
			assert.Equal(t, tt.expected.Phishing, stats.Phishing)
		})
	}
}

func TestScanClassifierFailureIsErrorVerdict(t *testing.T) {
	h := newHarness(t, nil)
	h.classifier.err = errors.New("connection refused")

	v := h.scan(t, snap("s1", "u1"))

	assert.Equal(t, core.LabelError, v.Label)
	assert.Equal(t, "N/A", v.ScoreText())
	require.Len(t, h.surface.badges, 1)
	assert.Equal(t, core.LabelError, h.surface.badges[0].Label)

	stats, err := h.service.DailyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Scans)
	assert.Zero(t, stats.Total())
}

func TestScanDiscardsStaleVerdict(t *testing.T) {
	h := newHarness(t, nil)
	old := snap("old", "u1")
	h.snapshots.current = snap("new", "u2")

	v, err := h.service.Scan(context.Background(), old)

	assert.ErrorIs(t, err, core.ErrStaleSnapshot)
	assert.Equal(t, "old", v.SnapshotID)
	assert.Empty(t, h.surface.badges)
	assert.Empty(t, h.guard.label)
}

func TestScanKeepsStaleVerdictWhenConfigured(t *testing.T) {
	h := newHarness(t, nil)
	h.service = core.NewScanService(h.classifier, "stub", h.feedback, h.store, h.snapshots,
		fixedUser("alice"), h.surface, h.guard, render.Encode, nil, false)
	h.snapshots.current = nil

	_, err := h.service.Scan(context.Background(), snap("old", "u1"))

	require.NoError(t, err)
	assert.Len(t, h.surface.badges, 1)
}

func TestScanSurvivesStoreFailures(t *testing.T) {
	h := newHarness(t, failingStore{})

	v := h.scan(t, snap("s1", "u1"))

	assert.Equal(t, core.LabelPhishing, v.Label)
	assert.Len(t, h.surface.badges, 1)
	assert.True(t, h.service.IsActive(context.Background()))
}

func TestScanWithoutSnapshot(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.service.Scan(context.Background(), nil)

	assert.ErrorIs(t, err, core.ErrNoSnapshot)
	assert.Zero(t, h.classifier.calls)
}

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(t, nil)
	h.snapshots.current = snap("s1", "u1")
	score := 0.5
	before := time.Now().UTC().Add(-time.Second)

	err := h.service.SubmitFeedback(context.Background(), "false_positive",
		core.Verdict{Label: core.LabelSuspicious, Score: &score})

	require.NoError(t, err)
	require.Len(t, h.feedback.sent, 1)
	fb := h.feedback.sent[0]
	assert.Equal(t, "false_positive", fb.ReportType)
	assert.Equal(t, "SUSPICIOUS", fb.OriginalPrediction)
	assert.Equal(t, 0.5, fb.OriginalScore)
	assert.Equal(t, "Reset your password", fb.EmailSubject)
	assert.Equal(t, "it@corp.example", fb.EmailSender)
	assert.Contains(t, fb.EmailBodyHTML, "evil.example")

	ts, err := time.Parse(time.RFC3339Nano, fb.Timestamp)
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	require.Len(t, h.surface.statuses, 1)
	assert.True(t, h.surface.statuses[0].OK)
}

func TestSubmitFeedbackDefaults(t *testing.T) {
	h := newHarness(t, nil)
	h.snapshots.current = &core.Snapshot{ID: "s1", BodyText: "plain text body"}

	require.NoError(t, h.service.SubmitFeedback(context.Background(), "", core.Verdict{}))

	fb := h.feedback.sent[0]
	assert.Equal(t, "unknown", fb.ReportType)
	assert.Equal(t, "unknown", fb.OriginalPrediction)
	assert.Equal(t, "No Subject", fb.EmailSubject)
	assert.Equal(t, core.UnknownSender, fb.EmailSender)
	assert.Equal(t, render.Encode("plain text body"), fb.EmailBodyHTML)
}

func TestSubmitFeedbackFailureShowsStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.snapshots.current = snap("s1", "u1")
	h.feedback.err = errors.New("503")

	err := h.service.SubmitFeedback(context.Background(), "missed_phishing", core.Verdict{Label: core.LabelSafe})

	assert.Error(t, err)
	require.Len(t, h.surface.statuses, 1)
	assert.False(t, h.surface.statuses[0].OK)
}

func TestToggle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.True(t, h.service.IsActive(ctx))
	require.NoError(t, h.service.SetActive(ctx, false))
	assert.False(t, h.service.IsActive(ctx))
}

func TestSnapshotHasEmail(t *testing.T) {
	var missing *core.Snapshot
	assert.False(t, missing.HasEmail())
	assert.False(t, (&core.Snapshot{Subject: core.UnknownSubject}).HasEmail())
	assert.True(t, (&core.Snapshot{Subject: core.UnknownSubject, BodyText: "hi"}).HasEmail())
	assert.True(t, snap("s1", "u1").HasEmail())
}
