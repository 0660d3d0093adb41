package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BenjaminSRussell/odc_harvest/internal/faults"
	"github.com/BenjaminSRussell/odc_harvest/internal/logger"
	"github.com/BenjaminSRussell/odc_harvest/internal/page"
	"github.com/BenjaminSRussell/odc_harvest/internal/parser"
	"github.com/BenjaminSRussell/odc_harvest/internal/provenance"
	"github.com/BenjaminSRussell/odc_harvest/internal/record"
	"github.com/BenjaminSRussell/odc_harvest/internal/storage"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const progressInterval = 5 * time.Second

// Fetcher turns a URL into a parsed Document
type Fetcher interface {
	Fetch(ctx context.Context, url string) (page.Document, error)
}

// Ledger is the persistent visited set consulted before dispatch
type Ledger interface {
	Contains(url string) bool
	Add(url string) error
}

// Deps are the collaborators a Crawler drives
type Deps struct {
	Fetcher Fetcher
	Ledger  Ledger
	Stamper provenance.Stamper
	Sink    storage.Sink
	Logger  logger.Interface

	// Now stamps crawled_at; defaults to time.Now
	Now func() time.Time
	// Closers are released by Close in reverse order
	Closers []io.Closer
}

// Crawler walks the catalog pages in order and harvests every detail page
// they list that the ledger has not seen.
type Crawler struct {
	config   types.Config
	frontier *Frontier

	fetcher Fetcher
	ledger  Ledger
	stamper provenance.Stamper
	sink    storage.Sink
	log     logger.Interface
	now     func() time.Time
	closers []io.Closer

	// Stats
	listPages        atomic.Int64
	discovered       atomic.Int64
	skipped          atomic.Int64
	dispatched       atomic.Int64
	emitted          atomic.Int64
	fetchErrors      atomic.Int64
	extractionFaults atomic.Int64
	ledgerFaults     atomic.Int64
	emitErrors       atomic.Int64
	panics           atomic.Int64

	// Concurrency control
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a crawler from explicit collaborators
func New(config types.Config, deps Deps) (*Crawler, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("sink is required")
	}
	if deps.Stamper == nil {
		deps.Stamper = provenance.NewWARCStamper(provenance.DefaultSoftware)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOp()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &Crawler{
		config:   config,
		frontier: NewFrontier(),
		fetcher:  deps.Fetcher,
		ledger:   deps.Ledger,
		stamper:  deps.Stamper,
		sink:     deps.Sink,
		log:      deps.Logger.WithComponent("crawler"),
		now:      deps.Now,
		closers:  deps.Closers,
		sem:      make(chan struct{}, config.Workers),
	}, nil
}

// Crawl runs the traversal until the catalog is exhausted, a catalog page
// fails or ctx is cancelled. It always waits for in-flight detail pages and
// returns the statistics gathered so far together with the stopping error.
func (c *Crawler) Crawl(ctx context.Context) (*types.Results, error) {
	startURL := c.config.StartURL()
	c.frontier.Add(Task{Kind: ListTask, URL: startURL})

	c.log.Info("Starting crawl", "start_url", startURL, "workers", c.config.Workers)

	stop := make(chan struct{})
	go c.reportProgress(stop, progressInterval)

	var crawlErr error
loop:
	for {
		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}

		task, ok := c.frontier.Next()
		if !ok {
			break
		}

		switch task.Kind {
		case ListTask:
			if err := c.processList(ctx, task.URL); err != nil {
				crawlErr = err
				break loop
			}
		case DetailTask:
			if !c.dispatch(ctx, task) {
				crawlErr = ctx.Err()
				break loop
			}
		}
	}

	// Wait for all workers to finish
	c.wg.Wait()
	close(stop)

	results := c.results()
	enqueued, popped := c.frontier.Stats()
	c.log.Info("Crawl finished",
		"tasks_enqueued", enqueued,
		"tasks_popped", popped,
		"list_pages", results.ListPages,
		"discovered", results.Discovered,
		"skipped", results.Skipped,
		"emitted", results.Emitted,
		"failed", results.FetchErrors+results.ExtractionFaults+results.EmitErrors+results.Panics,
	)

	return results, crawlErr
}

// processList fetches one catalog page, queues its unseen detail pages in
// page order and then queues the next catalog page if there is one.
func (c *Crawler) processList(ctx context.Context, listURL string) error {
	doc, err := c.fetcher.Fetch(ctx, listURL)
	if err != nil {
		c.fetchErrors.Add(1)
		c.log.Error("Catalog page fetch failed",
			"url", listURL,
			"fault_kind", faults.Kind(err),
			"error", err,
		)
		return fmt.Errorf("catalog page %s: %w", listURL, err)
	}
	c.listPages.Add(1)

	links, malformed := parser.CatalogItems(doc, c.config.BaseURL)
	if malformed > 0 {
		c.log.Warn("Catalog items without a detail link", "url", listURL, "count", malformed)
	}

	for _, link := range links {
		c.discovered.Add(1)

		if c.ledger.Contains(link) {
			c.skipped.Add(1)
			c.log.Info("Skipping visited detail page", "url", link)
			continue
		}

		if !c.frontier.Add(Task{Kind: DetailTask, URL: link}) {
			c.log.Debug("Detail page already queued", "url", link)
		}
	}

	next, ok := parser.NextPage(doc)
	if !ok {
		c.log.Info("No next catalog page", "url", listURL)
		return nil
	}
	if !c.frontier.Add(Task{Kind: ListTask, URL: next}) {
		c.log.Warn("Pagination points back to a visited catalog page", "url", next)
		return nil
	}
	c.log.Debug("Queued next catalog page", "url", next)
	return nil
}

// dispatch hands a detail task to the worker pool, blocking while the pool
// is full. It reports false when ctx ends first.
func (c *Crawler) dispatch(ctx context.Context, task Task) bool {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	c.dispatched.Add(1)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer func() { <-c.sem }()
		defer c.recoverTask(task)

		c.processDetail(ctx, task.URL)
	}()
	return true
}

// processDetail harvests a single detail page. The URL is recorded in the
// ledger only after its record was emitted.
func (c *Crawler) processDetail(ctx context.Context, detailURL string) {
	log := c.log.With("url", detailURL)

	doc, err := c.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		c.fetchErrors.Add(1)
		log.Error("Detail page fetch failed", "fault_kind", faults.Kind(err), "error", err)
		return
	}

	stamp := c.stamper.Stamp(detailURL)
	raw := parser.ExtractDetail(doc)
	raw.URL = detailURL

	rec, err := record.Assemble(raw, stamp, c.now())
	if err != nil {
		c.extractionFaults.Add(1)
		log.Error("Detail page is malformed", "fault_kind", faults.Kind(err), "error", err)
		return
	}

	if err := c.sink.Emit(ctx, rec); err != nil {
		c.emitErrors.Add(1)
		log.Error("Record emit failed", "fault_kind", faults.KindEmit, "error", err)
		return
	}
	c.emitted.Add(1)

	if err := c.ledger.Add(detailURL); err != nil {
		c.ledgerFaults.Add(1)
		log.Error("Ledger append failed", "fault_kind", faults.Kind(err), "error", err)
		return
	}

	log.Debug("Harvested detail page",
		"title", rec.FileMetadata.Title,
		"file_links", len(rec.FileMetadata.FileLinks),
	)
}

func (c *Crawler) results() *types.Results {
	return &types.Results{
		ListPages:        int(c.listPages.Load()),
		Discovered:       int(c.discovered.Load()),
		Skipped:          int(c.skipped.Load()),
		Dispatched:       int(c.dispatched.Load()),
		Emitted:          int(c.emitted.Load()),
		FetchErrors:      int(c.fetchErrors.Load()),
		ExtractionFaults: int(c.extractionFaults.Load()),
		LedgerFaults:     int(c.ledgerFaults.Load()),
		EmitErrors:       int(c.emitErrors.Load()),
		Panics:           int(c.panics.Load()),
	}
}

// reportProgress logs crawl progress until stop is closed
func (c *Crawler) reportProgress(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			enqueued, popped := c.frontier.Stats()
			c.log.Info("Crawl progress",
				"tasks_enqueued", enqueued,
				"tasks_popped", popped,
				"list_pages", c.listPages.Load(),
				"dispatched", c.dispatched.Load(),
				"emitted", c.emitted.Load(),
				"skipped", c.skipped.Load(),
				"pending", c.frontier.Size(),
			)
		}
	}
}

// Close releases the collaborators the crawler was built with
func (c *Crawler) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
