package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/metrics"
)

// ErrStaleSnapshot is returned by Scan when the email changed while the
// classifier was answering and the verdict was dropped.
var ErrStaleSnapshot = errors.New("snapshot is no longer current")

// ErrNoSnapshot is returned when there is no email to act on.
var ErrNoSnapshot = errors.New("no email snapshot available")

// Encoder renders canonical text as display HTML.
type Encoder func(text string) string

// ScanService is the verdict pipeline: it classifies snapshots, keeps the
// per-day counters and drives presentation.
type ScanService struct {
	classifier   Classifier
	provider     string
	feedback     FeedbackSender
	store        Store
	snapshots    SnapshotSource
	users        UserResolver
	surface      Surface
	guard        LinkGuard
	encode       Encoder
	logger       *zap.Logger
	discardStale bool
	now          func() time.Time
}

// NewScanService creates a new scan service
func NewScanService(
	classifier Classifier,
	provider string,
	feedback FeedbackSender,
	store Store,
	snapshots SnapshotSource,
	users UserResolver,
	surface Surface,
	guard LinkGuard,
	encode Encoder,
	logger *zap.Logger,
	discardStale bool,
) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		classifier:   classifier,
		provider:     provider,
		feedback:     feedback,
		store:        store,
		snapshots:    snapshots,
		users:        users,
		surface:      surface,
		guard:        guard,
		encode:       encode,
		logger:       logger,
		discardStale: discardStale,
		now:          time.Now,
	}
}

// Day returns the counter key of t.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}

// Scan classifies a snapshot and delivers the verdict. Network failures
// degrade to an ERROR verdict; storage failures are logged only.
func (s *ScanService) Scan(ctx context.Context, snap *Snapshot) (Verdict, error) {
	if snap == nil {
		return ErrorVerdict(""), ErrNoSnapshot
	}

	user := s.users.CurrentUser(ctx)
	day := Day(s.now())
	scanKey := day + "_" + snap.URL

	s.recordScan(ctx, user, day, scanKey)

	start := time.Now()
	result, err := s.classifier.Classify(ctx, NewClassificationRequest(snap))
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordClassifierLatency(s.provider, status, time.Since(start))

	verdict := VerdictFromResult(result, snap.ID)
	if err != nil {
		s.logger.Error("Classification failed",
			zap.String("snapshot_id", snap.ID),
			zap.String("provider", s.provider),
			zap.Error(err))
		verdict = ErrorVerdict(snap.ID)
	}

	if s.discardStale && !s.isCurrent(snap) {
		s.logger.Info("Discarding verdict for a snapshot that is no longer current",
			zap.String("snapshot_id", snap.ID),
			zap.String("verdict", string(verdict.Label)))
		metrics.RecordStaleDiscard()
		return verdict, ErrStaleSnapshot
	}

	s.logger.Info("Email classified",
		zap.String("user", user),
		zap.String("subject", snap.Subject),
		zap.String("sender", snap.Sender),
		zap.String("verdict", string(verdict.Label)),
		zap.String("score", verdict.ScoreText()))

	if s.guard != nil {
		s.guard.SetVerdict(verdict.Label)
	}
	s.recordCategory(ctx, user, day, scanKey, verdict.Label)

	if err := s.surface.ShowBadge(ctx, verdict); err != nil {
		s.logger.Warn("Failed to render verdict badge", zap.Error(err))
	}
	metrics.RecordScan(string(verdict.Label))

	return verdict, nil
}

func (s *ScanService) isCurrent(snap *Snapshot) bool {
	if s.snapshots == nil {
		return true
	}
	cur := s.snapshots.Peek()
	return cur != nil && cur.ID == snap.ID
}

// recordScan counts the email once per day.
func (s *ScanService) recordScan(ctx context.Context, user, day, scanKey string) {
	fresh, err := s.store.MarkOnce(ctx, user, day, scanKey)
	if err != nil {
		s.storeFailed("mark_scan", err)
		return
	}
	if !fresh {
		s.logger.Debug("Email already counted today", zap.String("key", scanKey))
		return
	}
	if _, err := s.store.Increment(ctx, user, day, CounterScans); err != nil {
		s.storeFailed("increment_scans", err)
	}
}

// recordCategory counts the verdict category once per email per day. The
// category marker is separate from the scan marker and is only set for
// emails whose scan was counted.
func (s *ScanService) recordCategory(ctx context.Context, user, day, scanKey string, label Label) {
	category := label.Category()
	if category == CategoryNone {
		return
	}

	scanned, err := s.store.IsMarked(ctx, user, day, scanKey)
	if err != nil {
		s.storeFailed("check_scan", err)
		return
	}
	if !scanned {
		return
	}

	fresh, err := s.store.MarkOnce(ctx, user, day, scanKey+"_security")
	if err != nil {
		s.storeFailed("mark_security", err)
		return
	}
	if !fresh {
		return
	}
	if _, err := s.store.Increment(ctx, user, day, string(category)); err != nil {
		s.storeFailed("increment_"+string(category), err)
	}
}

func (s *ScanService) storeFailed(op string, err error) {
	s.logger.Error("Counter store operation failed", zap.String("op", op), zap.Error(err))
	metrics.RecordStoreError(op)
}

// SubmitFeedback reports the user's opinion about a verdict for the current
// email and shows the outcome as a status notice.
func (s *ScanService) SubmitFeedback(ctx context.Context, reportType string, verdict Verdict) error {
	snap := s.snapshots.Current(ctx)
	if snap == nil {
		return ErrNoSnapshot
	}

	fb := &Feedback{
		ReportType:         orDefault(reportType, "unknown"),
		OriginalPrediction: orDefault(string(verdict.Label), "unknown"),
		OriginalScore:      verdict.ScoreValue(),
		EmailSubject:       orDefault(snap.Subject, "No Subject"),
		EmailSender:        orDefault(snap.Sender, UnknownSender),
		EmailBody:          orDefault(snap.BodyText, "No Body Content"),
		EmailBodyHTML:      snap.BodyHTML,
		Timestamp:          s.now().UTC().Format(time.RFC3339Nano),
	}
	if strings.TrimSpace(fb.EmailBodyHTML) == "" && s.encode != nil {
		fb.EmailBodyHTML = s.encode(snap.BodyText)
	}

	err := s.feedback.SendFeedback(ctx, fb)
	status := Status{Message: "Thank you! Your report has been submitted.", OK: true}
	if err != nil {
		s.logger.Error("Failed to submit feedback",
			zap.String("report_type", fb.ReportType),
			zap.Error(err))
		status = Status{Message: "Failed to submit report. Please try again.", OK: false}
	} else {
		s.logger.Info("Feedback submitted",
			zap.String("report_type", fb.ReportType),
			zap.String("prediction", fb.OriginalPrediction))
	}

	if showErr := s.surface.ShowStatus(ctx, status); showErr != nil {
		s.logger.Warn("Failed to show status", zap.Error(showErr))
	}
	return err
}

// DailyStats returns today's counters for the current user.
func (s *ScanService) DailyStats(ctx context.Context) (*DailyStats, error) {
	return s.store.Stats(ctx, s.users.CurrentUser(ctx), Day(s.now()))
}

// IsActive reports whether scanning is enabled. Scanning is on unless the
// store says otherwise.
func (s *ScanService) IsActive(ctx context.Context) bool {
	active, err := s.store.Active(ctx)
	if err != nil {
		s.storeFailed("read_toggle", err)
		return true
	}
	return active
}

// SetActive enables or disables scanning.
func (s *ScanService) SetActive(ctx context.Context, active bool) error {
	if err := s.store.SetActive(ctx, active); err != nil {
		s.storeFailed("write_toggle", err)
		return err
	}
	s.logger.Info("Scanning toggled", zap.Bool("active", active))
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
