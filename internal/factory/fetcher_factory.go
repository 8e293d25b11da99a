package factory

import (
	"github.com/mikey/content-safety/internal/adapters/fetcher"
	"github.com/mikey/content-safety/internal/adapters/transport"
	"github.com/mikey/content-safety/internal/config"
	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

// FetcherFactory creates the page fetcher and transport validator
type FetcherFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFetcherFactory creates a new fetcher factory
func NewFetcherFactory(cfg *config.Config, logger *zap.Logger) *FetcherFactory {
	return &FetcherFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFetcher creates the fetcher selected by fetch.mode. The returned func releases it.
func (f *FetcherFactory) CreateFetcher() (core.ContentFetcher, func(), error) {
	fetchCfg, err := f.cfg.GetFetch()
	if err != nil {
		return nil, nil, err
	}

	if fetchCfg.Mode == "browser" {
		f.logger.Info("Using headless browser fetcher")
		browser := fetcher.NewBrowserFetcher(fetchCfg.Timeout, fetchCfg.UserAgent, f.logger)
		return browser, browser.Stop, nil
	}
	return fetcher.NewHTTPFetcher(nil, fetchCfg.Timeout, fetchCfg.UserAgent, f.logger), func() {}, nil
}

// CreateValidator creates the TLS transport validator
func (f *FetcherFactory) CreateValidator() (core.TransportValidator, error) {
	fetchCfg, err := f.cfg.GetFetch()
	if err != nil {
		return nil, err
	}
	return transport.NewValidator(fetchCfg.TransportTimeout, f.logger), nil
}
