package di

import (
	"context"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/content-safety/internal/adapters/cache"
	"github.com/mikey/content-safety/internal/adapters/filter"
	"github.com/mikey/content-safety/internal/adapters/httpapi"
	"github.com/mikey/content-safety/internal/config"
	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/factory"
	"github.com/mikey/content-safety/internal/jobs"
	"github.com/mikey/content-safety/internal/lexicon"
	"github.com/mikey/content-safety/internal/logging"
	"github.com/mikey/content-safety/internal/metrics"
	"github.com/mikey/content-safety/internal/sender"
	"github.com/mikey/content-safety/internal/utils"
)

// Cleanup collects release functions of constructed resources
type Cleanup struct {
	mu  sync.Mutex
	fns []func()
}

// Add registers fn to run on Run
func (c *Cleanup) Add(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// Run releases resources in reverse construction order
func (c *Cleanup) Run() {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// BuildContainer creates the dependency injection container of the daemon
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.Load(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Metrics {
		return metrics.New(reg)
	}); err != nil {
		return nil, err
	}

	// Register reputation cache
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory, cleanup *Cleanup) (cache.Store, error) {
		store, err := f.CreateCache(context.Background())
		if err != nil {
			return nil, err
		}
		if store != nil {
			cleanup.Add(store.Stop)
		}
		return store, nil
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register async job registry
	if err := container.Provide(func(
		checker core.URLChecker,
		cfg *config.Config,
		logger *zap.Logger,
		m *metrics.Metrics,
	) (*jobs.Registry, error) {
		jobsCfg, err := cfg.GetJobs()
		if err != nil {
			return nil, err
		}
		return jobs.NewRegistry(checker, jobs.Options{
			MaxConcurrent:   jobsCfg.MaxConcurrent,
			AnalysisTimeout: jobsCfg.AnalysisTimeout,
			ResultTTL:       jobsCfg.ResultTTL,
		}, logger, m), nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP API
	if err := container.Provide(func(
		service *core.SafetyService,
		registry *jobs.Registry,
		m *metrics.Metrics,
		reg *prometheus.Registry,
		cfg *config.Config,
		logger *zap.Logger,
	) (*httpapi.Server, error) {
		serverCfg, err := cfg.GetServer()
		if err != nil {
			return nil, err
		}
		return httpapi.NewServer(service, registry, m, reg, serverCfg.ListenAddress, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register SMTP filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory, emails *core.EmailAnalyzer) *filter.SMTPFilter {
		return f.CreateSMTPFilter(emails)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers everything between configuration and the safety service.
// Config, logger, metrics and cache.Store must already be provided.
func provideAnalysis(container *dig.Container) error {
	if err := container.Provide(func() *Cleanup { return &Cleanup{} }); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register lexicon
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *lexicon.Lexicon {
		if dir := cfg.GetString("lexicon.dir"); dir != "" {
			return lexicon.Load(dir, logger)
		}
		return lexicon.Default(logger)
	}); err != nil {
		return err
	}

	// Register sender reputation
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SenderScorer {
		domains := cfg.GetStringSlice("spam.trusted_mail_domains")
		logger.Debug("Loaded trusted mail domains", zap.Strings("domains", domains))
		return sender.NewChecker(domains, logger)
	}); err != nil {
		return err
	}

	// Register URL analysis collaborators
	if err := container.Provide(factory.NewReputationFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ReputationFactory, store cache.Store) (core.ReputationProvider, error) {
		return f.CreateProvider(store)
	}); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFetcherFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.FetcherFactory, cleanup *Cleanup) (core.ContentFetcher, error) {
		fetcher, stop, err := f.CreateFetcher()
		if err != nil {
			return nil, err
		}
		cleanup.Add(stop)
		return fetcher, nil
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.FetcherFactory) (core.TransportValidator, error) {
		return f.CreateValidator()
	}); err != nil {
		return err
	}
	if err := container.Provide(core.NewContentClassifier); err != nil {
		return err
	}

	// Register analyzers
	if err := container.Provide(core.NewURLAnalyzer); err != nil {
		return err
	}
	if err := container.Provide(func(a *core.URLAnalyzer) core.URLChecker { return a }); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config) core.SpamPolicy {
		return cfg.GetSpamPolicy()
	}); err != nil {
		return err
	}
	if err := container.Provide(core.NewEmailAnalyzer); err != nil {
		return err
	}

	// Register rationale provider
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LLMFactory, cleanup *Cleanup, logger *zap.Logger) (core.LLMClient, error) {
		client, err := f.CreateLLMClient(context.Background())
		if err != nil {
			return nil, err
		}
		if closer, ok := client.(io.Closer); ok {
			cleanup.Add(func() {
				if err := closer.Close(); err != nil {
					logger.Error("Failed to close LLM client", zap.Error(err))
				}
			})
		}
		return client, nil
	}); err != nil {
		return err
	}
	if err := container.Provide(func(llm core.LLMClient, cfg *config.Config, logger *zap.Logger) (*core.RationaleGenerator, error) {
		llmCfg, err := cfg.GetLLM()
		if err != nil {
			return nil, err
		}
		return core.NewRationaleGenerator(llm, llmCfg.Timeout, logger), nil
	}); err != nil {
		return err
	}

	// Register safety service
	return container.Provide(core.NewSafetyService)
}
