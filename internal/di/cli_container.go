package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/content-safety/internal/adapters/cache"
	"github.com/mikey/content-safety/internal/config"
	"github.com/mikey/content-safety/internal/logging"
	"github.com/mikey/content-safety/internal/metrics"
)

// CLIFlags contains the command line flags shared by every CLI command
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides applied on top of the configuration when set
	Provider         string
	ReputationAPIKey string
	FetchMode        string
	SpamThreshold    float64
}

// BuildCLIContainer creates the dependency injection container of the CLI.
// The CLI never caches reputation verdicts and exports no metrics.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		var cfg *config.Config
		if flags.ConfigFile != "" {
			loaded, err := config.Load(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", loaded.GetViper().ConfigFileUsed()))
			cfg = loaded
		} else {
			cfg = config.NewFromViper(config.NewEmptyViper())
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register no-op metrics and no cache
	if err := container.Provide(func() *metrics.Metrics { return nil }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() cache.Store { return nil }); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags overrides configuration values with the flags that were set
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.ReputationAPIKey != "" {
		cfg.Set("reputation.api_key", flags.ReputationAPIKey)
	}
	if flags.FetchMode != "" {
		cfg.Set("fetch.mode", flags.FetchMode)
	}
	if flags.SpamThreshold > 0 {
		cfg.Set("spam.spam_threshold", flags.SpamThreshold)
	}
}
