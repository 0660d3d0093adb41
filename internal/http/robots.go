package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned for URLs excluded by robots.txt
var ErrDisallowed = errors.New("blocked by robots.txt")

// RobotsGuard answers robots.txt questions, caching one policy per host
type RobotsGuard struct {
	client *http.Client
	agent  string
	cache  sync.Map // map[string]*robotstxt.RobotsData
}

// NewRobotsGuard creates a guard evaluating rules for agent
func NewRobotsGuard(client *http.Client, agent string) *RobotsGuard {
	return &RobotsGuard{client: client, agent: agent}
}

// Allowed reports whether rawURL may be fetched. An unreachable or missing
// robots.txt allows everything.
func (g *RobotsGuard) Allowed(ctx context.Context, rawURL string) bool {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsedURL.Scheme, parsedURL.Host)

	if data, ok := g.cache.Load(robotsURL); ok {
		return g.test(data.(*robotstxt.RobotsData), parsedURL)
	}

	robots := g.fetch(ctx, robotsURL)
	if robots == nil {
		return true
	}

	g.cache.Store(robotsURL, robots)
	return g.test(robots, parsedURL)
}

func (g *RobotsGuard) test(robots *robotstxt.RobotsData, u *url.URL) bool {
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, g.agent)
}

func (g *RobotsGuard) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.agent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return robots
}
