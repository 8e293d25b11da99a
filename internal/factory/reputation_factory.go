package factory

import (
	"fmt"

	"github.com/mikey/content-safety/internal/adapters/reputation"
	"github.com/mikey/content-safety/internal/config"
	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/metrics"
	"go.uber.org/zap"
)

// ReputationFactory creates the reputation provider
type ReputationFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewReputationFactory creates a new reputation factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *ReputationFactory {
	return &ReputationFactory{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// CreateProvider creates the reputation client, fronted by store when it is non-nil
func (f *ReputationFactory) CreateProvider(store core.ReputationCache) (core.ReputationProvider, error) {
	repCfg, err := f.cfg.GetReputation()
	if err != nil {
		return nil, fmt.Errorf("invalid reputation configuration: %w", err)
	}

	client, err := reputation.NewClient(reputation.Config{
		BaseURL:        repCfg.BaseURL,
		APIKey:         repCfg.APIKey,
		PollDelay:      repCfg.PollDelay,
		MaxAttempts:    repCfg.MaxAttempts,
		RequestTimeout: repCfg.RequestTimeout,
	}, nil, f.logger, f.metrics)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return client, nil
	}

	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}
	return reputation.NewCachedProvider(client, store, cacheCfg.TTL, f.logger), nil
}
