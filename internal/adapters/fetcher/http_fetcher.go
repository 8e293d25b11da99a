package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the wall-clock ceiling of a page fetch
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "content-safety/1.0 (+https://github.com/mikey/content-safety)"

	maxBodyBytes = 5 << 20
)

// HTTPFetcher retrieves pages with a plain HTTP GET
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// NewHTTPFetcher creates a fetcher. A nil client gets a default one.
func NewHTTPFetcher(client *http.Client, timeout time.Duration, userAgent string, logger *zap.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch implements core.ContentFetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.PageContent, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", core.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", core.ErrFetchFailed, resp.StatusCode)
	}

	content, err := ExtractPageContent(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", core.ErrFetchFailed, err)
	}

	f.logger.Debug("Fetched page",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("paragraphs", len(content.Paragraphs)))

	return content, nil
}
