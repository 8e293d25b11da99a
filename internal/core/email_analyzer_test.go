package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestAnalyzeScenarios(t *testing.T) {
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, DefaultSpamPolicy())

	tests := []struct {
		name     string
		email    *Email
		validate func(t *testing.T, r *SpamAnalysis)
	}{
		{
			name: "clear spam",
			email: &Email{
				Subject: "Congratulations! You've won $1,000,000!",
				Body:    "Click here to claim your prize now! Limited time offer!",
				Sender:  "winner@spam.tk",
			},
			validate: func(t *testing.T, r *SpamAnalysis) {
				if !r.IsSpam {
					t.Error("expected spam")
				}
				if r.SpamScore <= 0.6 {
					t.Errorf("SpamScore = %v, want > 0.6", r.SpamScore)
				}
				for _, kw := range []string{"congratulations", "limited time"} {
					if !contains(r.DetectedSpamKeywords, kw) {
						t.Errorf("expected keyword %q in %v", kw, r.DetectedSpamKeywords)
					}
				}
				if len(r.DetectedPatterns) == 0 {
					t.Error("expected at least one pattern")
				}
				if r.AnalysisMetrics["suspicious_sender"] != true {
					t.Error("expected suspicious sender")
				}
				if !strings.Contains(r.SpamReason, ReasonSender) {
					t.Errorf("SpamReason = %q", r.SpamReason)
				}
			},
		},
		{
			name: "legitimate order",
			email: &Email{
				Subject: "Order Confirmation",
				Body:    "Thank you for your order. Your invoice is attached.",
				Sender:  "orders@company.com",
			},
			validate: func(t *testing.T, r *SpamAnalysis) {
				if r.IsSpam || r.IsHighRisk {
					t.Errorf("expected ham, got %+v", r)
				}
				if r.SpamScore >= 0.6 {
					t.Errorf("SpamScore = %v, want < 0.6", r.SpamScore)
				}
				if len(r.DetectedSpamKeywords) != 0 {
					t.Errorf("unexpected keywords %v", r.DetectedSpamKeywords)
				}
				if r.SpamReason != ReasonNoIndicators {
					t.Errorf("SpamReason = %q", r.SpamReason)
				}
			},
		},
		{
			name: "phishing high risk",
			email: &Email{
				Subject: "URGENT: Your account has been suspended",
				Body:    "Click here to verify your account immediately. Your account will be deleted within 24 hours if you don't act now!",
				Sender:  "security@bank.xyz",
			},
			validate: func(t *testing.T, r *SpamAnalysis) {
				if !r.IsHighRisk {
					t.Error("expected high risk")
				}
				if r.SpamScore <= 0.8 {
					t.Errorf("SpamScore = %v, want > 0.8", r.SpamScore)
				}
				if !strings.HasSuffix(r.SpamReason, ReasonHighScore) {
					t.Errorf("SpamReason = %q", r.SpamReason)
				}
			},
		},
		{
			name:  "empty email",
			email: &Email{},
			validate: func(t *testing.T, r *SpamAnalysis) {
				if r.DetectedSpamKeywords == nil || r.DetectedPatterns == nil {
					t.Error("detected lists must not be nil")
				}
				if r.AnalysisMetrics["content_length"] != 0 {
					t.Errorf("content_length = %v", r.AnalysisMetrics["content_length"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := a.Analyze(context.Background(), tt.email)
			if r.SpamScore < 0 || r.SpamScore > 1 {
				t.Errorf("SpamScore %v out of bounds", r.SpamScore)
			}
			if r.IsHighRisk && !r.IsSpam {
				t.Error("high risk must imply spam")
			}
			again := a.Analyze(context.Background(), tt.email)
			if again.SpamScore != r.SpamScore || again.SpamReason != r.SpamReason {
				t.Error("analysis is not deterministic")
			}
			tt.validate(t, r)
		})
	}
}

func TestAnalyzeNilEmail(t *testing.T) {
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, DefaultSpamPolicy())
	if r := a.Analyze(context.Background(), nil); r == nil {
		t.Fatal("expected a verdict for nil email")
	}
}

func TestScoreWeights(t *testing.T) {
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, DefaultSpamPolicy())

	// Trusted sender, no keywords, no legitimate terms, body of exactly 50 runes
	body := strings.Repeat("x", ShortContentLength)
	r := a.Analyze(context.Background(), &Email{Subject: "hi", Body: body, Sender: "alice@gmail.com"})

	want := WeightSenderReputation*(1-0.8) + WeightIllegitimacy
	if diff := r.SpamScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SpamScore = %v, want %v", r.SpamScore, want)
	}

	short := a.Analyze(context.Background(), &Email{Subject: "hi", Body: "x", Sender: "alice@gmail.com"})
	if diff := short.SpamScore - (want + WeightShortContent); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("short content SpamScore = %v, want %v", short.SpamScore, want+WeightShortContent)
	}

	long := a.Analyze(context.Background(), &Email{Subject: strings.Repeat("s", LongSubjectLength+1), Body: body, Sender: "alice@gmail.com"})
	if diff := long.SpamScore - (want + WeightLongSubject); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("long subject SpamScore = %v, want %v", long.SpamScore, want+WeightLongSubject)
	}
}

func TestMonotonicity(t *testing.T) {
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, DefaultSpamPolicy())
	base := &Email{Subject: "Hello", Body: "A short note about the weekend plans we discussed.", Sender: "friend@example.org"}
	baseScore := a.Analyze(context.Background(), base).SpamScore

	withKeyword := *base
	withKeyword.Body += " lottery"
	if got := a.Analyze(context.Background(), &withKeyword).SpamScore; got < baseScore {
		t.Errorf("adding a spam keyword decreased the score: %v < %v", got, baseScore)
	}

	withTerm := *base
	withTerm.Body += " invoice"
	if got := a.Analyze(context.Background(), &withTerm).SpamScore; got > baseScore {
		t.Errorf("adding a legitimate term increased the score: %v > %v", got, baseScore)
	}
}

func TestVerdictThresholds(t *testing.T) {
	policy := DefaultSpamPolicy()
	policy.SpamThreshold = 0.95
	policy.HighRiskThreshold = 0.99
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, policy)

	// Four keywords and no patterns: spam by keyword count alone
	r := a.Analyze(context.Background(), &Email{
		Subject: "lottery inheritance",
		Body:    "miracle cash bonus for our valued customer team, thank you and regards from support",
		Sender:  "alice@gmail.com",
	})
	if len(r.DetectedSpamKeywords) != 4 {
		t.Fatalf("keywords = %v, want 4", r.DetectedSpamKeywords)
	}
	if !r.IsSpam {
		t.Error("more than MaxSpamKeywords keywords must be spam")
	}
	if r.IsHighRisk {
		t.Error("four keywords are not high risk")
	}
}

func TestZeroThresholdsAreKept(t *testing.T) {
	policy := DefaultSpamPolicy()
	policy.SpamThreshold = 0.99
	policy.HighRiskThreshold = 0.999
	policy.MaxSpamKeywords = 0
	policy.MaxSpamPatterns = 0
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, policy)

	if got := a.Policy(); got.MaxSpamKeywords != 0 || got.MaxSpamPatterns != 0 {
		t.Fatalf("Policy() = %+v, want zero keyword and pattern limits", got)
	}

	r := a.Analyze(context.Background(), &Email{
		Subject: "lottery",
		Body:    "thank you for the notes from our team meeting, regards from support",
		Sender:  "alice@gmail.com",
	})
	if len(r.DetectedSpamKeywords) != 1 {
		t.Fatalf("keywords = %v, want 1", r.DetectedSpamKeywords)
	}
	if !r.IsSpam {
		t.Error("a single keyword must be spam when MaxSpamKeywords is 0")
	}

	zero := newTestEmailAnalyzer(t, &fakeURLChecker{}, SpamPolicy{SpamThreshold: 0, HighRiskThreshold: 1})
	if got := zero.Policy().SpamThreshold; got != 0 {
		t.Errorf("SpamThreshold = %v, want 0 kept", got)
	}
	if got := zero.Policy().MaxBulkEmails; got != DefaultSpamPolicy().MaxBulkEmails {
		t.Errorf("MaxBulkEmails = %d, want default", got)
	}
}

func TestExtractURLs(t *testing.T) {
	body := "See https://good.example.com/path?a=1. Or http://bad.example.com!! " +
		"Again https://good.example.com/path?a=1, and (https://x.example/)"
	got := ExtractURLs(body)
	want := []string{"https://good.example.com/path?a=1", "http://bad.example.com", "https://x.example/)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractURLs() = %v, want %v", got, want)
	}
}

func TestLinkAnalysis(t *testing.T) {
	checker := &fakeURLChecker{
		safe:   map[string]bool{"https://good.example.com/": true},
		panics: map[string]bool{"https://boom.example.com/": true},
	}
	a := newTestEmailAnalyzer(t, checker, DefaultSpamPolicy())

	r := a.Analyze(context.Background(), &Email{
		Subject: "Links",
		Body:    "Start at https://good.example.com/ then http://bad.example.com/ and finally https://boom.example.com/.",
		Sender:  "alice@gmail.com",
	})

	if len(r.LinkAnalysisResults) != 3 {
		t.Fatalf("links = %+v", r.LinkAnalysisResults)
	}
	good, bad, boom := r.LinkAnalysisResults[0], r.LinkAnalysisResults[1], r.LinkAnalysisResults[2]
	if good.URL != "https://good.example.com/" || !good.IsSafe || good.SafetyScore != LinkScoreSafe {
		t.Errorf("good link = %+v", good)
	}
	if bad.URL != "http://bad.example.com/" || bad.IsSafe || bad.SafetyScore != LinkScoreUnsafe {
		t.Errorf("bad link = %+v", bad)
	}
	if boom.IsSafe || boom.SafetyScore != LinkScoreFailed || boom.SafetyMessage != MessageLinkFailed {
		t.Errorf("panicking link = %+v", boom)
	}
	if !strings.Contains(r.SpamReason, "Contains 2 unsafe link(s)") {
		t.Errorf("SpamReason = %q", r.SpamReason)
	}
	if r.AnalysisMetrics["urls_found"] != 3 {
		t.Errorf("urls_found = %v", r.AnalysisMetrics["urls_found"])
	}
}

func TestLinkLimit(t *testing.T) {
	policy := DefaultSpamPolicy()
	policy.MaxLinks = 1
	checker := &fakeURLChecker{safe: map[string]bool{"https://a.example/": true, "https://b.example/": true}}
	a := newTestEmailAnalyzer(t, checker, policy)

	r := a.Analyze(context.Background(), &Email{Body: "https://a.example/ https://b.example/", Sender: "alice@gmail.com"})

	if len(checker.seen) != 1 {
		t.Errorf("analysed %v, want only the first link", checker.seen)
	}
	skipped := r.LinkAnalysisResults[1]
	if skipped.IsSafe || skipped.SafetyMessage != MessageLinkLimit || skipped.SafetyScore != LinkScoreFailed {
		t.Errorf("skipped link = %+v", skipped)
	}
}

func TestURLPenalty(t *testing.T) {
	safe := LinkResult{IsSafe: true}
	unsafe := LinkResult{}

	tests := []struct {
		name  string
		links []LinkResult
		want  float64
	}{
		{name: "no links", links: nil, want: 0},
		{name: "all safe", links: []LinkResult{safe, safe}, want: 0},
		{name: "one of two unsafe", links: []LinkResult{safe, unsafe}, want: 0.2},
		{name: "one of one unsafe capped", links: []LinkResult{unsafe}, want: 0.2},
		{name: "one of three unsafe", links: []LinkResult{safe, safe, unsafe}, want: 0.2},
		{name: "many unsafe capped", links: []LinkResult{unsafe, unsafe, unsafe}, want: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urlPenalty(tt.links); got != tt.want {
				t.Errorf("urlPenalty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeBulk(t *testing.T) {
	a := newTestEmailAnalyzer(t, &fakeURLChecker{}, DefaultSpamPolicy())

	emails := []*Email{
		{Subject: "Order Confirmation", Body: "Thank you for your order. Your invoice is attached.", Sender: "orders@company.com"},
		{Subject: "URGENT: Your account has been suspended", Body: "Click here to verify your account immediately. Your account will be deleted within 24 hours if you don't act now!", Sender: "security@bank.xyz"},
	}

	bulk, err := a.AnalyzeBulk(context.Background(), emails)
	if err != nil {
		t.Fatalf("AnalyzeBulk() error = %v", err)
	}
	if bulk.Total != 2 || bulk.SpamCount != 1 || bulk.HighRiskCount != 1 {
		t.Errorf("unexpected aggregates %+v", bulk)
	}
	want := (bulk.Results[0].SpamScore + bulk.Results[1].SpamScore) / 2
	if bulk.AverageScore != want {
		t.Errorf("AverageScore = %v, want %v", bulk.AverageScore, want)
	}
}

func TestAnalyzeBulkLimits(t *testing.T) {
	checker := &fakeURLChecker{}
	a := newTestEmailAnalyzer(t, checker, DefaultSpamPolicy())

	tooMany := make([]*Email, 101)
	for i := range tooMany {
		tooMany[i] = &Email{Body: "see https://example.com/"}
	}
	if _, err := a.AnalyzeBulk(context.Background(), tooMany); !errors.Is(err, ErrBulkLimitExceeded) {
		t.Errorf("expected ErrBulkLimitExceeded, got %v", err)
	}
	if len(checker.seen) != 0 {
		t.Error("rejected bulk request must not score any email")
	}

	if _, err := a.AnalyzeBulk(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
