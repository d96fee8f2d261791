package normalize

import (
	"net/url"
	"strings"
)

// RedirectWrapper describes an intermediary link that carries the real
// destination in a query parameter.
type RedirectWrapper struct {
	Host       string
	PathPrefix string
	Param      string
}

// DefaultWrappers are the redirect wrappers unwrapped by default.
var DefaultWrappers = []RedirectWrapper{
	{Host: "mail.google.com", Param: "url"},
	{Host: "www.google.com", PathPrefix: "/url", Param: "url"},
	{Host: "www.google.com", PathPrefix: "/url", Param: "q"},
	{Host: "google.com", PathPrefix: "/url", Param: "q"},
	{Host: "safelinks.protection.outlook.com", Param: "url"},
}

// Unwrap returns the true destination of a redirect-wrapper link, or href
// unchanged when it is not one. Only http(s) destinations are unwrapped.
func Unwrap(href string, wrappers []RedirectWrapper) string {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return href
	}
	host := strings.ToLower(u.Hostname())

	for _, w := range wrappers {
		if !matchesHost(host, w.Host) || !strings.HasPrefix(u.Path, w.PathPrefix) {
			continue
		}
		target := u.Query().Get(w.Param)
		if target == "" {
			continue
		}
		// Some wrappers encode the destination twice.
		if !isHTTP(target) {
			if decoded, err := url.QueryUnescape(target); err == nil {
				target = decoded
			}
		}
		if isHTTP(target) {
			return target
		}
	}
	return href
}

func matchesHost(host, wrapperHost string) bool {
	return host == wrapperHost || strings.HasSuffix(host, "."+wrapperHost)
}

// resolve makes ref absolute against base. It returns "" when ref cannot be
// resolved to an http(s) URL.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func isHTTP(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func isOpaque(src string) bool {
	l := strings.ToLower(src)
	return strings.Contains(l, "data:") || strings.Contains(l, "blob:")
}

func isScriptURL(href string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "javascript:")
}

func parseBase(location string) *url.URL {
	if location == "" {
		return nil
	}
	u, err := url.Parse(location)
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}
