package core

// Scoring weights of the email spam score
const (
	WeightKeyword          = 0.125
	WeightPattern          = 0.100
	WeightSuspiciousSender = 0.150
	WeightSenderReputation = 0.075
	WeightIllegitimacy     = 0.150
	WeightShortContent     = 0.025
	WeightLongSubject      = 0.025

	URLPenaltyPerUnsafe = 0.20
	URLPenaltyMajority  = 0.10
	URLPenaltyCap       = 0.20

	ShortContentLength = 50
	LongSubjectLength  = 100

	// HighRiskKeywords is the keyword count above which an email is high risk
	HighRiskKeywords = 5
)

// SpamPolicy holds the thresholds that define email verdicts
type SpamPolicy struct {
	SpamThreshold     float64
	HighRiskThreshold float64
	MaxSpamKeywords   int
	MaxSpamPatterns   int
	MaxBulkEmails     int
	LinkConcurrency   int
	MaxLinks          int
}

// DefaultSpamPolicy returns the standard thresholds
func DefaultSpamPolicy() SpamPolicy {
	return SpamPolicy{
		SpamThreshold:     0.6,
		HighRiskThreshold: 0.8,
		MaxSpamKeywords:   3,
		MaxSpamPatterns:   2,
		MaxBulkEmails:     100,
		LinkConcurrency:   4,
		MaxLinks:          25,
	}
}

// withDefaults fills unusable values from DefaultSpamPolicy. Zero is a valid
// threshold or count; only negative ones are replaced. The capacity limits
// must be positive.
func (p SpamPolicy) withDefaults() SpamPolicy {
	d := DefaultSpamPolicy()
	if p.SpamThreshold < 0 {
		p.SpamThreshold = d.SpamThreshold
	}
	if p.HighRiskThreshold < 0 {
		p.HighRiskThreshold = d.HighRiskThreshold
	}
	if p.MaxSpamKeywords < 0 {
		p.MaxSpamKeywords = d.MaxSpamKeywords
	}
	if p.MaxSpamPatterns < 0 {
		p.MaxSpamPatterns = d.MaxSpamPatterns
	}
	if p.MaxBulkEmails <= 0 {
		p.MaxBulkEmails = d.MaxBulkEmails
	}
	if p.LinkConcurrency <= 0 {
		p.LinkConcurrency = d.LinkConcurrency
	}
	if p.MaxLinks <= 0 {
		p.MaxLinks = d.MaxLinks
	}
	return p
}
