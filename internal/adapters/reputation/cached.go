package reputation

import (
	"context"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

// CachedProvider serves completed verdicts from a cache before asking the provider.
// Failures are never cached.
type CachedProvider struct {
	next   core.ReputationProvider
	cache  core.ReputationCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedProvider wraps next with cache
func NewCachedProvider(next core.ReputationProvider, cache core.ReputationCache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Check implements core.ReputationProvider
func (p *CachedProvider) Check(ctx context.Context, target string) (*core.Reputation, error) {
	if entry, err := p.cache.Get(ctx, target); err == nil && entry != nil {
		p.logger.Debug("Reputation cache hit", zap.String("url", target))
		return &core.Reputation{
			Malicious:  entry.Malicious,
			Suspicious: entry.Suspicious,
			Status:     core.StatusCompleted,
		}, nil
	}

	result, err := p.next.Check(ctx, target)
	if err != nil {
		return nil, err
	}

	if result.Status == core.StatusCompleted {
		now := p.now()
		entry := &core.ReputationEntry{
			URL:        target,
			Malicious:  result.Malicious,
			Suspicious: result.Suspicious,
			CheckedAt:  now,
			ExpiresAt:  now.Add(p.ttl),
		}
		if err := p.cache.Set(ctx, entry); err != nil {
			p.logger.Error("Failed to update reputation cache", zap.String("url", target), zap.Error(err))
		}
	}

	return result, nil
}
