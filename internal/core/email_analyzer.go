package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mikey/content-safety/internal/lexicon"
	"github.com/mikey/content-safety/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Link safety scores reported in LinkResult
const (
	LinkScoreSafe   = 0.8
	LinkScoreUnsafe = 0.2
	LinkScoreFailed = 0.0
)

var (
	urlPattern       = regexp.MustCompile(`https?://[\w\d\-._~:/?#\[\]@!$&'()*+,;=%]+`)
	trailingPunctRun = regexp.MustCompile(`[.,;!?]+$`)
)

// EmailAnalyzer scores emails for spam from lexicon signals, sender reputation
// and the safety of the links they contain
type EmailAnalyzer struct {
	lexicon *lexicon.Lexicon
	senders SenderScorer
	urls    URLChecker
	policy  SpamPolicy
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEmailAnalyzer creates an email analyzer. Zero policy fields take their defaults.
func NewEmailAnalyzer(
	lex *lexicon.Lexicon,
	senders SenderScorer,
	urls URLChecker,
	policy SpamPolicy,
	logger *zap.Logger,
	m *metrics.Metrics,
) *EmailAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailAnalyzer{
		lexicon: lex,
		senders: senders,
		urls:    urls,
		policy:  policy.withDefaults(),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Policy returns the thresholds in effect
func (e *EmailAnalyzer) Policy() SpamPolicy {
	return e.policy
}

// ExtractURLs returns the distinct http(s) URLs in text in order of first appearance
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = trailingPunctRun.ReplaceAllString(m, "")
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// Analyze scores a single email. It never fails.
func (e *EmailAnalyzer) Analyze(ctx context.Context, email *Email) *SpamAnalysis {
	start := time.Now()
	defer e.metrics.ObserveAnalysis("email", start)

	if email == nil {
		email = &Email{}
	}
	fullText := strings.ToLower(email.Subject + " " + email.Body)
	senderKey := strings.ToLower(strings.TrimSpace(email.Sender))

	keywords := e.lexicon.SpamKeywordHits(fullText)
	patternSources := e.lexicon.PatternHits(fullText)
	patterns := make([]string, len(patternSources))
	for i, src := range patternSources {
		patterns[i] = "Pattern: " + src
	}
	suspiciousSender := e.lexicon.IsSuspiciousSender(senderKey)
	legitimacy := e.lexicon.LegitimacyScore(fullText)
	senderReputation := e.senders.Reputation(senderKey)

	urls := ExtractURLs(email.Body)
	links := e.analyzeLinks(ctx, urls)

	contentLength := utf8.RuneCountInString(email.Body)
	subjectLength := utf8.RuneCountInString(email.Subject)

	score := WeightKeyword*float64(len(keywords)) +
		WeightPattern*float64(len(patterns)) +
		WeightSenderReputation*(1-senderReputation) +
		WeightIllegitimacy*(1-legitimacy) +
		urlPenalty(links)
	if suspiciousSender {
		score += WeightSuspiciousSender
	}
	if contentLength < ShortContentLength {
		score += WeightShortContent
	}
	if subjectLength > LongSubjectLength {
		score += WeightLongSubject
	}
	score = clamp(score)

	isHighRisk := score > e.policy.HighRiskThreshold || len(keywords) > HighRiskKeywords
	isSpam := score > e.policy.SpamThreshold ||
		len(keywords) > e.policy.MaxSpamKeywords ||
		len(patterns) > e.policy.MaxSpamPatterns ||
		isHighRisk

	result := &SpamAnalysis{
		IsSpam:               isSpam,
		IsHighRisk:           isHighRisk,
		SpamScore:            score,
		DetectedSpamKeywords: nonNil(keywords),
		DetectedPatterns:     patterns,
		AnalysisMetrics: map[string]interface{}{
			"keyword_count":     len(keywords),
			"pattern_count":     len(patterns),
			"suspicious_sender": suspiciousSender,
			"legitimacy_score":  legitimacy,
			"sender_reputation": senderReputation,
			"content_length":    contentLength,
			"subject_length":    subjectLength,
			"urls_found":        len(urls),
		},
		LinkAnalysisResults: links,
		AnalyzedAt:          e.now().UTC(),
	}
	result.SpamReason = e.spamReason(result, suspiciousSender)

	e.metrics.IncEmailAnalysis(emailVerdict(result))
	e.logger.Info("Email analyzed",
		zap.String("sender", senderKey),
		zap.Bool("spam", isSpam),
		zap.Bool("high_risk", isHighRisk),
		zap.Float64("score", score),
		zap.Int("links", len(links)),
		zap.Duration("duration", time.Since(start)))

	return result
}

// AnalyzeBulk scores every email. Requests above the bulk cap are rejected before any scoring.
func (e *EmailAnalyzer) AnalyzeBulk(ctx context.Context, emails []*Email) (*BulkSpamAnalysis, error) {
	if len(emails) == 0 {
		return nil, fmt.Errorf("%w: email list cannot be empty", ErrInvalidInput)
	}
	if len(emails) > e.policy.MaxBulkEmails {
		return nil, fmt.Errorf("%w: %d emails, maximum is %d", ErrBulkLimitExceeded, len(emails), e.policy.MaxBulkEmails)
	}

	bulk := &BulkSpamAnalysis{
		Results: make([]*SpamAnalysis, 0, len(emails)),
		Total:   len(emails),
	}
	total := 0.0
	for _, email := range emails {
		result := e.Analyze(ctx, email)
		bulk.Results = append(bulk.Results, result)
		if result.IsSpam {
			bulk.SpamCount++
		}
		if result.IsHighRisk {
			bulk.HighRiskCount++
		}
		total += result.SpamScore
	}
	bulk.AverageScore = total / float64(len(emails))
	bulk.AnalyzedAt = e.now().UTC()
	return bulk, nil
}

// analyzeLinks runs the URL checker over urls with bounded concurrency.
// Results keep the order of urls; links past the cap are reported unanalysed.
func (e *EmailAnalyzer) analyzeLinks(ctx context.Context, urls []string) []LinkResult {
	results := make([]LinkResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	sem := semaphore.NewWeighted(int64(e.policy.LinkConcurrency))
	var wg sync.WaitGroup

	for i, u := range urls {
		if i >= e.policy.MaxLinks {
			results[i] = LinkResult{URL: u, SafetyMessage: MessageLinkLimit, SafetyScore: LinkScoreFailed}
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = LinkResult{URL: u, SafetyMessage: MessageLinkFailed, SafetyScore: LinkScoreFailed}
			continue
		}

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = e.analyzeLink(ctx, u)
		}(i, u)
	}

	wg.Wait()
	return results
}

func (e *EmailAnalyzer) analyzeLink(ctx context.Context, u string) (result LinkResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Link analysis panicked", zap.String("url", u), zap.Any("panic", r))
			result = LinkResult{URL: u, SafetyMessage: MessageLinkFailed, SafetyScore: LinkScoreFailed}
		}
	}()

	analysis := e.urls.Analyze(ctx, u)
	if analysis == nil {
		return LinkResult{URL: u, SafetyMessage: MessageLinkFailed, SafetyScore: LinkScoreFailed}
	}
	safe := analysis.OverallSafe()
	score := LinkScoreUnsafe
	if safe {
		score = LinkScoreSafe
	}
	return LinkResult{
		URL:           u,
		IsSafe:        safe,
		SafetyMessage: analysis.SafetyMessage,
		SafetyScore:   score,
	}
}

func (e *EmailAnalyzer) spamReason(result *SpamAnalysis, suspiciousSender bool) string {
	var reasons []string
	if len(result.DetectedSpamKeywords) > 0 {
		reasons = append(reasons, ReasonKeywords+strings.Join(result.DetectedSpamKeywords, ", "))
	}
	if len(result.DetectedPatterns) > 0 {
		reasons = append(reasons, ReasonPatterns)
	}
	if suspiciousSender {
		reasons = append(reasons, ReasonSender)
	}
	if unsafe := result.UnsafeLinkCount(); unsafe > 0 {
		reasons = append(reasons, fmt.Sprintf("Contains %d unsafe link(s)", unsafe))
	}
	if result.SpamScore > e.policy.HighRiskThreshold {
		reasons = append(reasons, ReasonHighScore)
	}
	if len(reasons) == 0 {
		return ReasonNoIndicators
	}
	return strings.Join(reasons, "; ")
}

// urlPenalty is 0.2 per unsafe link plus 0.1 when most links are unsafe, capped at 0.2
func urlPenalty(links []LinkResult) float64 {
	if len(links) == 0 {
		return 0
	}
	unsafe := 0
	for _, l := range links {
		if !l.IsSafe {
			unsafe++
		}
	}
	penalty := URLPenaltyPerUnsafe * float64(unsafe)
	if unsafe*2 > len(links) {
		penalty += URLPenaltyMajority
	}
	if penalty > URLPenaltyCap {
		return URLPenaltyCap
	}
	return penalty
}

func emailVerdict(r *SpamAnalysis) string {
	switch {
	case r.IsHighRisk:
		return "high_risk"
	case r.IsSpam:
		return "spam"
	default:
		return "ham"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
