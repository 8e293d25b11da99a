package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/content-safety/internal/metrics"
	"github.com/mikey/content-safety/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxDescriptionLength bounds UrlAnalysis.Description in runes
const MaxDescriptionLength = 200

// URLAnalyzer combines transport, reputation and content checks into a verdict
type URLAnalyzer struct {
	transport  TransportValidator
	reputation ReputationProvider
	fetcher    ContentFetcher
	classifier *ContentClassifier
	text       *utils.TextProcessor
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewURLAnalyzer creates a URL analyzer over its collaborators
func NewURLAnalyzer(
	transport TransportValidator,
	reputation ReputationProvider,
	fetcher ContentFetcher,
	classifier *ContentClassifier,
	text *utils.TextProcessor,
	logger *zap.Logger,
	m *metrics.Metrics,
) *URLAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	return &URLAnalyzer{
		transport:  transport,
		reputation: reputation,
		fetcher:    fetcher,
		classifier: classifier,
		text:       text,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// CanonicalizeURL parses rawURL and returns its canonical https form.
// Anything unparseable, hostless or not https is an ErrInvalidInput.
func CanonicalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: url is empty", ErrInvalidInput)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q is not https", ErrInvalidInput, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: url has no host", ErrInvalidInput)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Analyze produces a verdict for rawURL. It never fails: dimensions whose
// truth cannot be established are reported unsafe.
func (a *URLAnalyzer) Analyze(ctx context.Context, rawURL string) *UrlAnalysis {
	start := time.Now()
	defer a.metrics.ObserveAnalysis("url", start)

	canonical, err := CanonicalizeURL(rawURL)
	if err != nil {
		a.logger.Info("Rejected URL without analysis", zap.String("url", rawURL), zap.Error(err))
		result := a.rejected(rawURL, err)
		a.metrics.IncURLAnalysis("unsafe")
		return result
	}

	var (
		isSecure bool
		rep      *Reputation
		repErr   error
		content  *PageContent
		fetchErr error
		legs     errgroup.Group
	)

	legs.Go(func() error {
		isSecure = a.transport.Validate(ctx, canonical)
		return nil
	})
	legs.Go(func() error {
		rep, repErr = a.reputation.Check(ctx, canonical)
		return nil
	})
	legs.Go(func() error {
		content, fetchErr = a.fetcher.Fetch(ctx, canonical)
		return nil
	})
	_ = legs.Wait()

	info := map[string]interface{}{
		"transport_secure": isSecure,
	}

	isSafeFromScams := false
	if repErr != nil {
		a.logger.Warn("Reputation check failed", zap.String("url", canonical), zap.Error(repErr))
		info["reputation_error"] = repErr.Error()
	} else if rep != nil {
		isSafeFromScams = rep.Clean()
		info["reputation_status"] = rep.Status
		info["malicious"] = rep.Malicious
		info["suspicious"] = rep.Suspicious
	}

	var description string
	isTextSafe := false
	if fetchErr != nil || content == nil {
		if fetchErr == nil {
			fetchErr = ErrFetchFailed
		}
		a.logger.Warn("Content fetch failed", zap.String("url", canonical), zap.Error(fetchErr))
		description = DescriptionFetchFailed
		info["fetch_error"] = fetchErr.Error()
	} else {
		text := content.Text()
		classification := a.classifier.Classify(text)
		isTextSafe = classification.IsTextSafe
		for k, v := range classification.Metrics() {
			info[k] = v
		}
		description = a.text.Truncate(text, MaxDescriptionLength)
		if description == "" {
			description = DescriptionEmpty
		}
	}

	result := &UrlAnalysis{
		URL:             canonical,
		Description:     description,
		IsSecure:        isSecure,
		IsSafeFromScams: isSafeFromScams,
		IsTextSafe:      isTextSafe,
		IsUrlSuspicious: !isSafeFromScams,
		SafetyMessage:   safetyMessage(isSecure, isSafeFromScams, isTextSafe),
		AnalyzedAt:      a.now().UTC(),
		AdditionalInfo:  info,
	}

	verdict := "unsafe"
	if result.OverallSafe() {
		verdict = "safe"
	}
	a.metrics.IncURLAnalysis(verdict)
	a.logger.Info("URL analyzed",
		zap.String("url", canonical),
		zap.Bool("secure", isSecure),
		zap.Bool("safe_from_scams", isSafeFromScams),
		zap.Bool("text_safe", isTextSafe),
		zap.Duration("duration", time.Since(start)))

	return result
}

// AnalyzeAsync runs Analyze on its own goroutine. The channel receives exactly one result.
func (a *URLAnalyzer) AnalyzeAsync(ctx context.Context, rawURL string) <-chan *UrlAnalysis {
	out := make(chan *UrlAnalysis, 1)
	go func() {
		defer close(out)
		out <- a.Analyze(ctx, rawURL)
	}()
	return out
}

// rejected builds the verdict for input that was never analysed
func (a *URLAnalyzer) rejected(rawURL string, err error) *UrlAnalysis {
	reason := err.Error()
	if errors.Is(err, ErrInvalidInput) {
		reason = strings.TrimPrefix(reason, ErrInvalidInput.Error()+": ")
	}
	return &UrlAnalysis{
		URL:             strings.TrimSpace(rawURL),
		Description:     DescriptionNotAnalyzed,
		IsSecure:        false,
		IsSafeFromScams: false,
		IsTextSafe:      false,
		IsUrlSuspicious: true,
		SafetyMessage:   safetyMessage(false, false, false),
		AnalyzedAt:      a.now().UTC(),
		AdditionalInfo: map[string]interface{}{
			"rejected": reason,
		},
	}
}

// FailedAnalysis is the failure-shaped verdict used when no analysis could run
func FailedAnalysis(rawURL, reason string, now time.Time) *UrlAnalysis {
	return &UrlAnalysis{
		URL:             strings.TrimSpace(rawURL),
		Description:     DescriptionFetchFailed,
		IsUrlSuspicious: true,
		SafetyMessage:   safetyMessage(false, false, false),
		AnalyzedAt:      now.UTC(),
		AdditionalInfo: map[string]interface{}{
			"error": reason,
		},
	}
}
