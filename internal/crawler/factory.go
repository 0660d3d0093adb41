package crawler

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	odchttp "github.com/BenjaminSRussell/odc_harvest/internal/http"
	"github.com/BenjaminSRussell/odc_harvest/internal/ledger"
	"github.com/BenjaminSRussell/odc_harvest/internal/logger"
	"github.com/BenjaminSRussell/odc_harvest/internal/provenance"
	"github.com/BenjaminSRussell/odc_harvest/internal/renderer"
	"github.com/BenjaminSRussell/odc_harvest/internal/storage"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewFromConfig wires the default collaborators: the HTTP fetcher (with the
// Chrome fallback when enabled), the on-disk ledger, WARC stamping and the
// JSONL store plus SQLite when enabled.
func NewFromConfig(config types.Config, log logger.Interface) (*Crawler, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	var closers []io.Closer
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}

	var rend odchttp.Renderer
	if config.EnableJSRendering {
		cr, err := renderer.NewChromeRenderer(config.UserAgent, config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize renderer: %w", err)
		}
		closers = append(closers, closerFunc(func() error {
			cr.Close()
			return nil
		}))
		rend = cr
		log.Info("JavaScript rendering enabled")
	}

	fetcher := odchttp.NewHTTPFetcher(odchttp.Config{
		Timeout:       config.Timeout,
		UserAgent:     config.UserAgent,
		RespectRobots: !config.IgnoreRobots,
		Workers:       config.Workers,
	}, rend)

	visited, err := ledger.Open(config.LedgerPath)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	closers = append(closers, visited)
	log.Info("Loaded visited ledger", "path", visited.Path(), "entries", visited.Len())

	store, err := storage.New(config.DataDir)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	closers = append(closers, store)

	// Save initial config
	if err := store.SaveConfig(config); err != nil {
		release()
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	sinks := storage.MultiSink{store}
	if config.EnableSQLite {
		dbPath := filepath.Join(config.DataDir, storage.SQLiteFile)
		db, err := storage.NewSQLiteStorage(dbPath)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		closers = append(closers, db)
		sinks = append(sinks, db)
		log.Info("SQLite storage enabled", "path", dbPath)
	}

	c, err := New(config, Deps{
		Fetcher: fetcher,
		Ledger:  visited,
		Stamper: provenance.NewWARCStamper(provenance.DefaultSoftware),
		Sink:    sinks,
		Logger:  log,
		Closers: closers,
	})
	if err != nil {
		release()
		return nil, err
	}
	return c, nil
}

// validateConfig validates crawler configuration
func validateConfig(config types.Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", config.BaseURL)
	}

	if config.Language == "" {
		return fmt.Errorf("language is required")
	}

	if config.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", config.Workers)
	}

	if config.Workers > 1000 {
		return fmt.Errorf("workers too high (max 1000), got %d", config.Workers)
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}

	if config.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if config.LedgerPath == "" {
		return fmt.Errorf("ledger path is required")
	}

	return nil
}
