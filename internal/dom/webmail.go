package dom

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// Webmail layout markers. The class names are the host page's own and
// change rarely; every lookup in the pipeline goes through these.
var (
	ContentMarker = MustSelector("div.a3s")
	SubjectMarker = MustSelector("h2.hP")
	MainMarker    = MustSelector("div[role=main]")

	// BodyCandidates are tried in order to find the rendered email body.
	BodyCandidates = []cascadia.Selector{
		ContentMarker,
		MustSelector("div.adn"),
		MustSelector("div.ii.gt"),
		MustSelector("div.im"),
		MainMarker,
	}

	// ContentContainerSelectors scope the link-click guard.
	ContentContainerSelectors = []string{"div.a3s", "div.ii.gt", "div.adn", "div.im"}
	ContentContainers         = mustSelectors(ContentContainerSelectors)
)

func mustSelectors(sels []string) []cascadia.Selector {
	out := make([]cascadia.Selector, len(sels))
	for i, sel := range sels {
		out[i] = MustSelector(sel)
	}
	return out
}

// Ids of elements the service injects into the page.
const (
	BadgeID          = "phishing-badge"
	PopupID          = "phishing-popup"
	OverlayID        = "phishing-overlay"
	ReportPopupID    = "report-popup"
	ReportOverlayID  = "report-overlay"
	StatusID         = "feedback-status"
	WarningOverlayID = "custom-warning-overlay"
	WarningDialogID  = "custom-warning-dialog"
)

// ExtensionElementIDs lists every extension-owned element id.
var ExtensionElementIDs = []string{
	BadgeID, PopupID, OverlayID, ReportPopupID, ReportOverlayID, StatusID,
	WarningOverlayID, WarningDialogID,
}

// ExtensionElements matches any extension-owned element.
var ExtensionElements = MustSelector("#" + strings.Join(ExtensionElementIDs, ", #"))
