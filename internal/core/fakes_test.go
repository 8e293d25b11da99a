package core

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mikey/content-safety/internal/lexicon"
	"github.com/mikey/content-safety/internal/sender"
	"go.uber.org/zap/zaptest"
)

type fakeTransport struct {
	secure bool
}

func (f fakeTransport) Validate(ctx context.Context, url string) bool {
	return f.secure && strings.HasPrefix(url, "https://")
}

type fakeReputation struct {
	result *Reputation
	err    error
	calls  int32
}

func (f *fakeReputation) Check(ctx context.Context, url string) (*Reputation, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.result, f.err
}

type fakeFetcher struct {
	content *PageContent
	err     error
}

func (f fakeFetcher) Fetch(ctx context.Context, url string) (*PageContent, error) {
	return f.content, f.err
}

// fakeURLChecker answers from a table keyed by URL; unknown URLs are unsafe
type fakeURLChecker struct {
	mu     sync.Mutex
	safe   map[string]bool
	panics map[string]bool
	seen   []string
}

func (f *fakeURLChecker) Analyze(ctx context.Context, url string) *UrlAnalysis {
	f.mu.Lock()
	f.seen = append(f.seen, url)
	safe := f.safe[url]
	shouldPanic := f.panics[url]
	f.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	msg := MessageReputation
	if safe {
		msg = MessageSafe
	}
	return &UrlAnalysis{
		URL:             url,
		IsSecure:        safe,
		IsSafeFromScams: safe,
		IsTextSafe:      safe,
		IsUrlSuspicious: !safe,
		SafetyMessage:   msg,
	}
}

func cleanReputation() *fakeReputation {
	return &fakeReputation{result: &Reputation{Status: StatusCompleted}}
}

func benignPage() *PageContent {
	return &PageContent{
		Title:           "Example Store",
		MetaDescription: "Customer support and order tracking",
		Heading:         "Welcome",
		Paragraphs:      []string{"Thank you for visiting."},
	}
}

func testLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	return lexicon.Default(zaptest.NewLogger(t))
}

func newTestEmailAnalyzer(t *testing.T, urls URLChecker, policy SpamPolicy) *EmailAnalyzer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewEmailAnalyzer(
		testLexicon(t),
		sender.NewChecker(sender.DefaultTrustedDomains, logger),
		urls,
		policy,
		logger,
		nil,
	)
}
