package http

import (
	"net/http"
)

// DefaultUserAgent identifies the harvester to the catalog operators
const DefaultUserAgent = "odc-harvest/1.0 (+https://github.com/BenjaminSRussell/odc_harvest)"

// HeaderProfile is the set of request headers sent with every fetch
type HeaderProfile struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	CacheControl   string
}

// NewHeaderProfile returns the standard HTML profile with the given agent
func NewHeaderProfile(userAgent string) HeaderProfile {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return HeaderProfile{
		UserAgent:      userAgent,
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "km,en-US;q=0.8,en;q=0.5",
		CacheControl:   "max-age=0",
	}
}

// Apply sets the profile headers on req. Accept-Encoding is left to the
// transport so compressed bodies are decoded transparently.
func (p HeaderProfile) Apply(req *http.Request) {
	req.Header.Set("User-Agent", p.UserAgent)
	if p.Accept != "" {
		req.Header.Set("Accept", p.Accept)
	}
	if p.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", p.AcceptLanguage)
	}
	if p.CacheControl != "" {
		req.Header.Set("Cache-Control", p.CacheControl)
	}
}
