package core

import (
	"context"
)

// ReputationProvider looks up a URL with an external reputation service
type ReputationProvider interface {
	// Check submits the URL and waits for a terminal verdict. Any failure,
	// including an exhausted poll budget, is returned as an error.
	Check(ctx context.Context, url string) (*Reputation, error)
}

// TransportValidator checks the transport security of a URL
type TransportValidator interface {
	// Validate returns true only for HTTPS URLs presenting a currently valid chain
	Validate(ctx context.Context, url string) bool
}

// ContentFetcher retrieves and extracts the text of a page
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a prompt and returns the generated text
	Complete(ctx context.Context, prompt string) (string, error)
}

// URLChecker produces a verdict for a URL. It never fails.
type URLChecker interface {
	Analyze(ctx context.Context, url string) *UrlAnalysis
}

// ReputationCache defines the interface for caching reputation verdicts
type ReputationCache interface {
	// Get retrieves a cached entry for a URL
	Get(ctx context.Context, url string) (*ReputationEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *ReputationEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, url string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// SenderScorer assigns a trust prior in [0,1] to a sender address
type SenderScorer interface {
	Reputation(from string) float64
}
