package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultRationaleTimeout bounds a single rationale request
const DefaultRationaleTimeout = 15 * time.Second

const urlPromptFormat = `You are a web security analyst.
Explain in two or three sentences, for a non-technical reader, whether this website is safe to visit.

URL: %s
Description: %s
Valid HTTPS certificate: %s
Flagged by reputation service: %s
Scam language in content: %s
Verdict: %s

Respond with plain text only.`

const emailPromptFormat = `You are an email security analyst.
Analyze this email and explain why it is %s:

Subject: %s
Content: %s
Sender: %s

Spam Score: %.2f
Keywords: %s
Patterns: %s
Suspicious Sender: %s
URLs: %d (Unsafe: %d)

Respond with plain text only.`

// RationaleGenerator asks an LLM to explain a verdict in natural language.
// It never changes the verdict and falls back to deterministic text on any failure.
type RationaleGenerator struct {
	llm     LLMClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewRationaleGenerator creates a generator. A nil llm always yields the fallback text.
func NewRationaleGenerator(llm LLMClient, timeout time.Duration, logger *zap.Logger) *RationaleGenerator {
	if timeout <= 0 {
		timeout = DefaultRationaleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RationaleGenerator{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
}

// FallbackURLRationale is the deterministic explanation of a URL verdict
func FallbackURLRationale(a *UrlAnalysis) string {
	return a.SafetyMessage
}

// FallbackEmailRationale is the deterministic explanation of an email verdict
func FallbackEmailRationale(s *SpamAnalysis) string {
	label := "NOT SPAM"
	if s.IsSpam {
		label = "SPAM"
	}
	return fmt.Sprintf("Email classified as %s: %s", label, s.SpamReason)
}

// ExplainURL returns a rationale for a URL verdict
func (g *RationaleGenerator) ExplainURL(ctx context.Context, a *UrlAnalysis) string {
	if g.llm == nil {
		return FallbackURLRationale(a)
	}
	verdict := "potentially unsafe"
	if a.OverallSafe() {
		verdict = "likely safe"
	}
	prompt := fmt.Sprintf(urlPromptFormat,
		a.URL, a.Description, yesNo(a.IsSecure), yesNo(a.IsUrlSuspicious), yesNo(!a.IsTextSafe), verdict)

	text, err := g.complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("Rationale generation failed, using fallback", zap.String("url", a.URL), zap.Error(err))
		return FallbackURLRationale(a)
	}
	return text
}

// ExplainEmail returns a rationale for an email verdict
func (g *RationaleGenerator) ExplainEmail(ctx context.Context, email *Email, s *SpamAnalysis) string {
	if g.llm == nil || email == nil {
		return FallbackEmailRationale(s)
	}
	label := "NOT SPAM"
	if s.IsSpam {
		label = "SPAM"
	}
	suspicious, _ := s.AnalysisMetrics["suspicious_sender"].(bool)
	prompt := fmt.Sprintf(emailPromptFormat,
		label,
		email.Subject,
		email.Body,
		email.Sender,
		s.SpamScore,
		strings.Join(s.DetectedSpamKeywords, ", "),
		strings.Join(s.DetectedPatterns, ", "),
		yesNo(suspicious),
		len(s.LinkAnalysisResults),
		s.UnsafeLinkCount(),
	)

	text, err := g.complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("Rationale generation failed, using fallback", zap.String("sender", email.Sender), zap.Error(err))
		return FallbackEmailRationale(s)
	}
	return text
}

func (g *RationaleGenerator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRationaleFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrRationaleFailed)
	}
	return text, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
