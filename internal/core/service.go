package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/content-safety/internal/lexicon"
	"go.uber.org/zap"
)

// SafetyService is the entry point used by every transport: HTTP, SMTP and CLI
type SafetyService struct {
	urls      *URLAnalyzer
	emails    *EmailAnalyzer
	rationale *RationaleGenerator
	lexicon   *lexicon.Lexicon
	logger    *zap.Logger
}

// NewSafetyService creates a new safety service
func NewSafetyService(
	urls *URLAnalyzer,
	emails *EmailAnalyzer,
	rationale *RationaleGenerator,
	lex *lexicon.Lexicon,
	logger *zap.Logger,
) *SafetyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rationale == nil {
		rationale = NewRationaleGenerator(nil, 0, logger)
	}
	return &SafetyService{
		urls:      urls,
		emails:    emails,
		rationale: rationale,
		lexicon:   lex,
		logger:    logger,
	}
}

// URLs returns the underlying URL analyzer
func (s *SafetyService) URLs() *URLAnalyzer {
	return s.urls
}

// Emails returns the underlying email analyzer
func (s *SafetyService) Emails() *EmailAnalyzer {
	return s.emails
}

// CheckWebsite analyzes a URL and attaches a rationale. Only a blank URL is an error;
// malformed or non-https URLs produce an unsafe verdict.
func (s *SafetyService) CheckWebsite(ctx context.Context, url string) (*UrlAnalysis, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	result := s.urls.Analyze(ctx, url)
	result.Rationale = s.rationale.ExplainURL(ctx, result)
	return result, nil
}

// ValidateEmail rejects emails without a sender or without any content
func ValidateEmail(email *Email) error {
	if email == nil {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(email.Sender) == "" {
		return fmt.Errorf("%w: sender email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Body) == "" {
		return fmt.Errorf("%w: email subject or content is required", ErrInvalidInput)
	}
	return nil
}

// CheckEmail scores an email and attaches a rationale
func (s *SafetyService) CheckEmail(ctx context.Context, email *Email) (*SpamAnalysis, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	result := s.emails.Analyze(ctx, email)
	result.Rationale = s.rationale.ExplainEmail(ctx, email, result)
	return result, nil
}

// CheckBulkEmails scores a batch. Every email is validated before any is scored;
// results carry the deterministic rationale only.
func (s *SafetyService) CheckBulkEmails(ctx context.Context, emails []*Email) (*BulkSpamAnalysis, error) {
	if max := s.emails.Policy().MaxBulkEmails; len(emails) > max {
		return nil, fmt.Errorf("%w: %d emails, maximum is %d", ErrBulkLimitExceeded, len(emails), max)
	}
	for i, email := range emails {
		if err := ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("email %d: %w", i, err)
		}
	}

	bulk, err := s.emails.AnalyzeBulk(ctx, emails)
	if err != nil {
		return nil, err
	}
	for _, result := range bulk.Results {
		result.Rationale = FallbackEmailRationale(result)
	}

	s.logger.Info("Bulk email check completed",
		zap.Int("total", bulk.Total),
		zap.Int("spam", bulk.SpamCount),
		zap.Int("high_risk", bulk.HighRiskCount))
	return bulk, nil
}

// QuickCheck reports whether an email is high risk spam, without a rationale
func (s *SafetyService) QuickCheck(ctx context.Context, email *Email) (bool, error) {
	if err := ValidateEmail(email); err != nil {
		return false, err
	}
	return s.emails.Analyze(ctx, email).IsHighRisk, nil
}

// SpamKeywords returns the sorted spam keyword list
func (s *SafetyService) SpamKeywords() []string {
	return s.lexicon.SpamKeywords()
}
