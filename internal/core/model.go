package core

import (
	"strings"
	"time"
)

// Email represents an email message submitted for spam analysis
type Email struct {
	Subject   string
	Body      string
	Sender    string
	Recipient string
	Headers   map[string][]string
}

// UrlAnalysis is the verdict produced for a single URL
type UrlAnalysis struct {
	URL             string                 `json:"url"`
	Description     string                 `json:"description"`
	IsSecure        bool                   `json:"isSecure"`
	IsSafeFromScams bool                   `json:"isSafeFromScams"`
	IsTextSafe      bool                   `json:"isTextSafe"`
	IsUrlSuspicious bool                   `json:"isUrlSuspicious"`
	SafetyMessage   string                 `json:"safetyMessage"`
	AnalyzedAt      time.Time              `json:"analyzedAt"`
	AdditionalInfo  map[string]interface{} `json:"additionalInfo,omitempty"`
	Rationale       string                 `json:"rationale,omitempty"`
}

// OverallSafe reports whether every dimension of the analysis is safe
func (a *UrlAnalysis) OverallSafe() bool {
	return a.IsSecure && a.IsSafeFromScams && a.IsTextSafe && !a.IsUrlSuspicious
}

// LinkResult summarises the URL analysis of one link found in an email body
type LinkResult struct {
	URL           string  `json:"url"`
	IsSafe        bool    `json:"isSafe"`
	SafetyMessage string  `json:"safetyMessage"`
	SafetyScore   float64 `json:"safetyScore"`
}

// SpamAnalysis is the verdict produced for an email
type SpamAnalysis struct {
	IsSpam               bool                   `json:"isSpam"`
	IsHighRisk           bool                   `json:"isHighRisk"`
	SpamScore            float64                `json:"spamScore"`
	DetectedSpamKeywords []string               `json:"detectedSpamKeywords"`
	DetectedPatterns     []string               `json:"detectedPatterns"`
	AnalysisMetrics      map[string]interface{} `json:"analysisMetrics"`
	LinkAnalysisResults  []LinkResult           `json:"linkAnalysisResults"`
	SpamReason           string                 `json:"spamReason"`
	Rationale            string                 `json:"rationale,omitempty"`
	AnalyzedAt           time.Time              `json:"analyzedAt"`
}

// UnsafeLinkCount returns the number of links judged unsafe
func (s *SpamAnalysis) UnsafeLinkCount() int {
	count := 0
	for _, link := range s.LinkAnalysisResults {
		if !link.IsSafe {
			count++
		}
	}
	return count
}

// BulkSpamAnalysis aggregates the verdicts of a bulk email request
type BulkSpamAnalysis struct {
	Results       []*SpamAnalysis `json:"results"`
	Total         int             `json:"totalEmails"`
	SpamCount     int             `json:"spamCount"`
	HighRiskCount int             `json:"highRiskCount"`
	AverageScore  float64         `json:"averageSpamScore"`
	AnalyzedAt    time.Time       `json:"analyzedAt"`
}

// Reputation holds the detection counts returned by a reputation provider
type Reputation struct {
	Malicious  int
	Suspicious int
	Status     string
}

// Clean reports whether the reputation verdict completed with zero hits
func (r *Reputation) Clean() bool {
	return r != nil && r.Status == StatusCompleted && r.Malicious == 0 && r.Suspicious == 0
}

// Reputation provider analysis statuses
const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
)

// ReputationEntry is a cached reputation verdict for a URL
type ReputationEntry struct {
	URL        string
	Malicious  int
	Suspicious int
	CheckedAt  time.Time
	ExpiresAt  time.Time
}

// PageContent is the text extracted from a fetched page
type PageContent struct {
	Title           string
	MetaDescription string
	Heading         string
	Paragraphs      []string
}

// Text joins the non-empty extracted fields with single spaces
func (p *PageContent) Text() string {
	parts := make([]string, 0, 3+len(p.Paragraphs))
	for _, s := range []string{p.Title, p.MetaDescription, p.Heading} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, s := range p.Paragraphs {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
