package core

import (
	"time"
)

// Sentinel values used when extraction cannot find a field.
const (
	UnknownSubject = "Unknown Subject"
	UnknownSender  = "Unknown Sender"
	DefaultUser    = "default_user"
	ExtractFailed  = "Could not extract email body"
)

// Snapshot is the immutable record of one email captured from the page
// before any extension-owned element was written into it.
type Snapshot struct {
	ID         string
	URL        string
	Subject    string
	Sender     string
	BodyText   string
	BodyHTML   string
	CapturedAt time.Time
}

// HasEmail reports whether the snapshot captured an open email rather than
// the no-email sentinel.
func (s *Snapshot) HasEmail() bool {
	return s != nil && (s.Subject != UnknownSubject || s.BodyText != "")
}

// ClassificationRequest is the content submitted to the classifier.
type ClassificationRequest struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// NewClassificationRequest builds the classifier payload for a snapshot.
// The subject is prefixed to the body text.
func NewClassificationRequest(s *Snapshot) ClassificationRequest {
	return ClassificationRequest{
		Content: s.Subject + "\n\n" + s.BodyText,
		Sender:  s.Sender,
		Subject: s.Subject,
		HTML:    s.BodyHTML,
	}
}

// ClassificationResult is the raw answer of a classifier backend.
type ClassificationResult struct {
	Verdict    string
	Score      *float64
	Provider   string
	AnalyzedAt time.Time
}

// Feedback is a user report about a verdict.
type Feedback struct {
	ReportType         string  `json:"reportType"`
	OriginalPrediction string  `json:"originalPrediction"`
	OriginalScore      float64 `json:"originalScore"`
	EmailSubject       string  `json:"emailSubject"`
	EmailSender        string  `json:"emailSender"`
	EmailBody          string  `json:"emailBody"`
	EmailBodyHTML      string  `json:"emailBodyHTML"`
	Timestamp          string  `json:"timestamp"`
}

// Counter names persisted per user and day.
const (
	CounterScans     = "scans"
	CounterSafe      = "safe"
	CounterMalicious = "malicious"
	CounterPhishing  = "phishing"
)

// DailyStats are the aggregate counters for one user on one day.
type DailyStats struct {
	User      string
	Day       string
	Scans     int64
	Safe      int64
	Malicious int64
	Phishing  int64
}

// Total is the number of categorised scans.
func (d *DailyStats) Total() int64 {
	return d.Safe + d.Malicious + d.Phishing
}

// Status is a transient notice shown to the user.
type Status struct {
	Message string
	OK      bool
}
