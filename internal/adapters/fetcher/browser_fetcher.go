package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

// BrowserFetcher renders pages in headless Chrome before extraction
type BrowserFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

// NewBrowserFetcher starts a Chrome allocator shared by every fetch
func NewBrowserFetcher(timeout time.Duration, userAgent string, logger *zap.Logger) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(userAgent),
		chromedp.DisableGPU,
		chromedp.WindowSize(1280, 800),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserFetcher{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		timeout:     timeout,
		logger:      logger,
	}
}

// Fetch implements core.ContentFetcher
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*core.PageContent, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, f.timeout)
	defer cancel()

	// Tie the tab to the caller's lifetime as well
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: browser render: %v", core.ErrFetchFailed, err)
	}

	content, err := ExtractPageContent(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", core.ErrFetchFailed, err)
	}

	f.logger.Debug("Rendered page", zap.String("url", url), zap.Int("html_bytes", len(html)))
	return content, nil
}

// Stop shuts down the browser allocator
func (f *BrowserFetcher) Stop() {
	f.allocCancel()
}
