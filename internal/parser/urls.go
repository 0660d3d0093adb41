package parser

import (
	"net/url"
	"strings"
)

// JoinBase turns a catalog href into an absolute detail URL by prefixing the
// base domain. Hrefs that are already absolute are kept.
func JoinBase(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}

	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}

// normalizeURL converts relative URLs to absolute and cleans them
func normalizeURL(href, baseURL string) string {
	// Skip empty, javascript, mailto, tel, etc.
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(u)
	resolved.Fragment = ""

	return removeTrackingParams(resolved)
}

var trackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"fbclid",
	"gclid",
}

// removeTrackingParams drops analytics query parameters. Queries without any
// are left byte-for-byte intact so catalog sort order encoding survives.
func removeTrackingParams(u *url.URL) string {
	q := u.Query()
	changed := false
	for _, param := range trackingParams {
		if q.Has(param) {
			q.Del(param)
			changed = true
		}
	}

	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
