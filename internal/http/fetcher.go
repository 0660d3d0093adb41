// Package http is the default fetch backend: plain HTTP with an optional
// robots.txt gate and an optional headless-browser fallback.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/BenjaminSRussell/odc_harvest/internal/faults"
	"github.com/BenjaminSRussell/odc_harvest/internal/page"
	"github.com/BenjaminSRussell/odc_harvest/internal/renderer"
)

const (
	robotsAgent  = "odc-harvest"
	maxBodyBytes = 20 * 1024 * 1024
)

// Renderer produces the final HTML of a script-driven page
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Config holds fetch settings
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	RespectRobots bool
	Workers       int
}

// HTTPFetcher fetches pages over net/http
type HTTPFetcher struct {
	client   *http.Client
	headers  HeaderProfile
	robots   *RobotsGuard
	renderer Renderer
}

// NewHTTPFetcher creates a fetcher. r may be nil to disable rendering.
func NewHTTPFetcher(config Config, r Renderer) *HTTPFetcher {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	// Catalog sessions (language choice, CSRF cookies) persist across pages
	jar, _ := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})

	client := &http.Client{
		Jar:     jar,
		Timeout: config.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        workers * 2,
			MaxIdleConnsPerHost: workers,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	f := &HTTPFetcher{
		client:   client,
		headers:  NewHeaderProfile(config.UserAgent),
		renderer: r,
	}
	if config.RespectRobots {
		f.robots = NewRobotsGuard(client, robotsAgent)
	}
	return f
}

// Fetch downloads url and parses it. Every failure is a *faults.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (page.Document, error) {
	if f.robots != nil && !f.robots.Allowed(ctx, url) {
		return nil, &faults.FetchError{URL: url, Err: ErrDisallowed}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &faults.FetchError{URL: url, Err: fmt.Errorf("request creation failed: %w", err)}
	}
	f.headers.Apply(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &faults.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &faults.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &faults.FetchError{URL: url, Err: fmt.Errorf("body read failed: %w", err)}
	}
	htmlContent := string(body)

	if f.renderer != nil && renderer.ShouldRender(htmlContent) {
		rendered, err := f.renderer.Render(ctx, url)
		if err != nil {
			return nil, &faults.FetchError{URL: url, Err: err}
		}
		htmlContent = rendered
	}

	doc, err := page.FromString(htmlContent, url)
	if err != nil {
		return nil, &faults.FetchError{URL: url, Err: err}
	}
	return doc, nil
}
