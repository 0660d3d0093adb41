package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminSRussell/odc_harvest/internal/faults"
	"github.com/BenjaminSRussell/odc_harvest/internal/page"
)

const longBody = `<html><body><div class="module-content"><h1>Title</h1></div>` +
	`<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.
	Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.
	Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.
	Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum.</p></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, longBody)
	})
	mux.HandleFunc("/private/doc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, longBody)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<div id=\"root\"></div>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchOK(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, nil)

	doc, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/ok", doc.URL())

	n, ok := page.First(doc, ".module-content > h1")
	require.True(t, ok)
	assert.Equal(t, "Title", n.Text())
}

func TestFetchNon200(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var fetchErr *faults.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, faults.KindFetch, faults.Kind(err))
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := newServer(t)
	url := srv.URL + "/ok"
	srv.Close()

	f := NewHTTPFetcher(Config{Timeout: time.Second}, nil)
	_, err := f.Fetch(context.Background(), url)
	assert.Equal(t, faults.KindFetch, faults.Kind(err))
}

func TestFetchCancelled(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, srv.URL+"/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchRespectsRobots(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second, RespectRobots: true}, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/private/doc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowed)

	_, err = f.Fetch(context.Background(), srv.URL+"/ok")
	assert.NoError(t, err)
}

func TestFetchIgnoresRobotsWhenDisabled(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/private/doc")
	assert.NoError(t, err)
}

func TestRobotsGuardCachesPerHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			fmt.Fprint(w, "User-agent: odc-harvest\nDisallow: /dataset/private\n")
			return
		}
	}))
	defer srv.Close()

	g := NewRobotsGuard(srv.Client(), robotsAgent)
	assert.True(t, g.Allowed(context.Background(), srv.URL+"/dataset/a"))
	assert.False(t, g.Allowed(context.Background(), srv.URL+"/dataset/private"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRobotsGuardMissingFileAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	g := NewRobotsGuard(srv.Client(), robotsAgent)
	assert.True(t, g.Allowed(context.Background(), srv.URL+"/anything"))
}

type fakeRenderer struct {
	calls atomic.Int32
	html  string
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, url string) (string, error) {
	r.calls.Add(1)
	return r.html, r.err
}

func TestFetchRendersScriptPages(t *testing.T) {
	srv := newServer(t)
	r := &fakeRenderer{html: `<html><body><div class="module-content"><h1>Rendered</h1></div></body></html>`}
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, r)

	doc, err := f.Fetch(context.Background(), srv.URL+"/short")
	require.NoError(t, err)
	n, ok := page.First(doc, "h1")
	require.True(t, ok)
	assert.Equal(t, "Rendered", n.Text())

	_, err = f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestFetchRenderFailure(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, &fakeRenderer{err: errors.New("chrome missing")})

	_, err := f.Fetch(context.Background(), srv.URL+"/short")
	assert.Equal(t, faults.KindFetch, faults.Kind(err))
}

func TestFetchKeepsSessionCookies(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/first" {
			http.SetCookie(w, &http.Cookie{Name: "ckan_lang", Value: "km", Path: "/"})
		} else if c, err := r.Cookie("ckan_lang"); err == nil {
			seen.Store(c.Value)
		}
		fmt.Fprint(w, longBody)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{Timeout: 5 * time.Second}, nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/first")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL+"/second")
	require.NoError(t, err)

	assert.Equal(t, "km", seen.Load())
}

func TestHeaderProfileApply(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example.org", nil)
	NewHeaderProfile("").Apply(req)

	assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
	assert.NotEmpty(t, req.Header.Get("Accept"))
	assert.Empty(t, req.Header.Get("Accept-Encoding"))

	NewHeaderProfile("custom/2").Apply(req)
	assert.Equal(t, "custom/2", req.Header.Get("User-Agent"))
}
