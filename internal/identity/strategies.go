package identity

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/mikey/inbox-sentry/internal/dom"
)

var (
	accountSelectors = []cascadia.Selector{
		dom.MustSelector("div[data-ogsc]"),
		dom.MustSelector("div[data-email]"),
		dom.MustSelector(`a[aria-label*="@"]`),
		dom.MustSelector(`.gb_d[aria-label*="@"]`),
		dom.MustSelector(`.gb_e[aria-label*="@"]`),
		dom.MustSelector("span[data-email]"),
	}

	broadSelector = dom.MustSelector(`[data-email], [aria-label*="@"]`)

	senderAttrSelectors = []cascadia.Selector{
		dom.MustSelector("span[email]"),
		dom.MustSelector(".go span[email]"),
		dom.MustSelector(".gD[email]"),
		dom.MustSelector(".h2osw [email]"),
		dom.MustSelector(".yW span[email]"),
	}

	senderTextSelector = dom.MustSelector(".gD, .go, .h2osw")
)

// UserStrategies find the signed-in account address, most specific first.
var UserStrategies = []Strategy{
	{Name: "account-elements", Extract: fromAccountElements},
	{Name: "url-fragment", Extract: fromFragment},
	{Name: "url", Extract: fromLocation},
	{Name: "page-scan", Extract: fromPageScan},
}

// SenderStrategies find the open email's sender address.
var SenderStrategies = []Strategy{
	{Name: "email-attribute", Extract: fromSenderAttribute},
	{Name: "header-text", Extract: fromSenderText},
}

func fromAccountElements(in Input) (string, bool) {
	for _, sel := range accountSelectors {
		for _, n := range dom.QueryAll(in.Doc, sel) {
			for _, candidate := range []string{
				dom.Attr(n, "data-email"),
				dom.Attr(n, "aria-label"),
				dom.TextContent(n),
			} {
				if addr, ok := FindEmail(candidate); ok {
					return addr, true
				}
			}
		}
	}
	return "", false
}

func fromFragment(in Input) (string, bool) {
	u, err := url.Parse(in.Location)
	if err != nil {
		return "", false
	}
	return FindEmail(decodeLocation(u.Fragment))
}

func fromLocation(in Input) (string, bool) {
	return FindEmail(decodeLocation(in.Location))
}

func fromPageScan(in Input) (string, bool) {
	for _, n := range dom.QueryAll(in.Doc, broadSelector) {
		if addr, ok := FindEmail(dom.Attr(n, "data-email")); ok {
			return addr, true
		}
		if addr, ok := FindEmail(dom.Attr(n, "aria-label")); ok {
			return addr, true
		}
	}
	return "", false
}

func fromSenderAttribute(in Input) (string, bool) {
	for _, sel := range senderAttrSelectors {
		for _, n := range dom.QueryAll(in.Doc, sel) {
			if addr, ok := FindEmail(dom.Attr(n, "email")); ok {
				return addr, true
			}
		}
	}
	return "", false
}

func fromSenderText(in Input) (string, bool) {
	for _, n := range dom.QueryAll(in.Doc, senderTextSelector) {
		text := strings.TrimSpace(dom.TextContent(n))
		if text == "" || len([]rune(text)) >= maxSenderText {
			continue
		}
		if addr, ok := FindEmail(text); ok {
			return addr, true
		}
	}
	return "", false
}
