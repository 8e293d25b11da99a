package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the VirusTotal v3 API root
	DefaultBaseURL     = "https://www.virustotal.com/api/v3"
	DefaultTimeout     = 30 * time.Second
	DefaultPollDelay   = 3 * time.Second
	DefaultMaxAttempts = 5

	apiKeyHeader = "x-apikey"

	// maxResponseBytes bounds a single API response body
	maxResponseBytes = 1 << 20
)

// errUnexpectedStatus marks a terminal analysis status other than completed
var errUnexpectedStatus = errors.New("unexpected analysis status")

// Config holds the reputation client settings
type Config struct {
	BaseURL        string
	APIKey         string
	PollDelay      time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
}

// Client submits URLs to a VirusTotal-style service and polls for the verdict.
// A single Client should be shared by every analyzer in the process.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	pollDelay   time.Duration
	maxAttempts int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type analysisResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Stats  struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
			} `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewClient creates a reputation client. A nil httpClient gets one with cfg.RequestTimeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: reputation API key is required", core.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.PollDelay < 0 {
		cfg.PollDelay = DefaultPollDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		pollDelay:   cfg.PollDelay,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
		metrics:     m,
	}, nil
}

// Check submits target and polls its analysis until completed, a terminal
// failure, cancellation or the attempt cap
func (c *Client) Check(ctx context.Context, target string) (*core.Reputation, error) {
	handle, err := c.submit(ctx, target)
	if err != nil {
		c.metrics.IncReputationPoll("failed")
		return nil, fmt.Errorf("%w: submit %s: %v", core.ErrReputationFailed, target, err)
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := sleep(ctx, c.pollDelay); err != nil {
			c.metrics.IncReputationPoll("failed")
			return nil, fmt.Errorf("%w: polling interrupted: %v", core.ErrReputationFailed, err)
		}

		result, err := c.poll(ctx, handle)
		if err != nil {
			c.metrics.IncReputationPoll("failed")
			return nil, fmt.Errorf("%w: poll %d: %v", core.ErrReputationFailed, attempt, err)
		}

		switch result.Status {
		case core.StatusCompleted:
			c.metrics.IncReputationPoll("completed")
			c.logger.Debug("Reputation analysis completed",
				zap.String("url", target),
				zap.Int("attempts", attempt),
				zap.Int("malicious", result.Malicious),
				zap.Int("suspicious", result.Suspicious))
			return result, nil
		case core.StatusQueued:
			c.metrics.IncReputationPoll("queued")
			continue
		default:
			c.metrics.IncReputationPoll("failed")
			return nil, fmt.Errorf("%w: %w %q", core.ErrReputationFailed, errUnexpectedStatus, result.Status)
		}
	}

	c.metrics.IncReputationPoll("failed")
	return nil, fmt.Errorf("%w: analysis still queued after %d attempts", core.ErrReputationFailed, c.maxAttempts)
}

// submit posts the URL for scanning and returns the analysis handle
func (c *Client) submit(ctx context.Context, target string) (string, error) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp submitResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", errors.New("response has no analysis id")
	}
	return resp.Data.ID, nil
}

// poll fetches the current state of an analysis
func (c *Client) poll(ctx context.Context, handle string) (*core.Reputation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analyses/"+url.PathEscape(handle), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp analysisResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	attrs := resp.Data.Attributes
	return &core.Reputation{
		Malicious:  attrs.Stats.Malicious,
		Suspicious: attrs.Stats.Suspicious,
		Status:     attrs.Status,
	}, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
