// Package trigger turns raw page change notifications into discrete
// email-open and email-closed transitions.
package trigger

import (
	"golang.org/x/net/html"

	"github.com/mikey/inbox-sentry/internal/dom"
)

// State is the detector's view of the page.
type State int

const (
	NoEmail State = iota
	EmailOpen
)

func (s State) String() string {
	if s == EmailOpen {
		return "email-open"
	}
	return "no-email"
}

// Action is what an observation asks the detector to do.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionClose
)

func (a Action) String() string {
	switch a {
	case ActionOpen:
		return "open"
	case ActionClose:
		return "close"
	default:
		return "none"
	}
}

// Observation is the part of the page the transition table looks at.
type Observation struct {
	Location   string
	HasContent bool
	HasSubject bool
	HasBadge   bool
	HasPopup   bool
}

// Observe reads an Observation from a parsed page.
func Observe(doc *html.Node, location string) Observation {
	return Observation{
		Location:   location,
		HasContent: dom.QueryFirst(doc, dom.ContentMarker) != nil,
		HasSubject: dom.QueryFirst(doc, dom.SubjectMarker) != nil,
		HasBadge:   dom.FindByID(doc, dom.BadgeID) != nil,
		HasPopup:   dom.FindByID(doc, dom.PopupID) != nil,
	}
}

// Machine is the pure transition table. It is not safe for concurrent use.
type Machine struct {
	state    State
	url      string
	latched  bool
	lastSeen string
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// URL returns the location of the open email, if any.
func (m *Machine) URL() string { return m.url }

// Latched reports whether a capture run is in flight.
func (m *Machine) Latched() bool { return m.latched }

// Step applies one observation.
//
// An email opens when content and subject are present, no badge has been
// rendered yet, no run is in flight and the location is new; opening takes
// the latch. An email closes when the content is gone while extension UI
// is still on the page.
func (m *Machine) Step(o Observation) Action {
	if o.HasContent && o.HasSubject && !o.HasBadge && !m.latched && o.Location != m.url {
		m.state = EmailOpen
		m.url = o.Location
		m.latched = true
		return ActionOpen
	}
	if !o.HasContent && (o.HasBadge || o.HasPopup) {
		m.state = NoEmail
		m.url = ""
		return ActionClose
	}
	return ActionNone
}

// Release clears the latch.
func (m *Machine) Release() {
	m.latched = false
}

// Seen records the location reported by polling and reports whether it
// differs from the previous one.
func (m *Machine) Seen(location string) bool {
	if location == m.lastSeen {
		return false
	}
	m.lastSeen = location
	return true
}
