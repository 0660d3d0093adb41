package renderer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders pages with headless Chrome
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	settle      time.Duration
}

// NewChromeRenderer creates a new Chrome renderer
func NewChromeRenderer(userAgent string, timeout time.Duration) (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     timeout,
		settle:      2 * time.Second,
	}, nil
}

// Render loads url in a fresh tab and returns the final HTML. The tab is torn
// down when ctx is cancelled.
func (cr *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(cr.allocCtx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, cr.timeout)
	defer timeoutCancel()

	var htmlContent string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(cr.settle),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}

	return htmlContent, nil
}

// ShouldRender determines if a page needs JS rendering
func ShouldRender(htmlContent string) bool {
	if len(htmlContent) < 500 {
		return true
	}

	jsIndicators := []string{
		"<div id=\"root\"></div>",
		"<div id=\"app\"></div>",
		"<noscript>You need to enable JavaScript",
		"JavaScript is required",
		"Please enable JavaScript",
		"__NEXT_DATA__",
		"data-reactroot",
	}

	lowerContent := strings.ToLower(htmlContent)
	for _, indicator := range jsIndicators {
		if strings.Contains(lowerContent, strings.ToLower(indicator)) {
			return true
		}
	}

	return false
}

// Close closes the renderer
func (cr *ChromeRenderer) Close() {
	if cr.allocCancel != nil {
		cr.allocCancel()
	}
}
