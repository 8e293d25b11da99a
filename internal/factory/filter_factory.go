package factory

import (
	"github.com/mikey/content-safety/internal/adapters/filter"
	"github.com/mikey/content-safety/internal/config"
	"go.uber.org/zap"
)

// FilterFactory creates the SMTP content filter
type FilterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger) *FilterFactory {
	return &FilterFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSMTPFilter creates the filter, or nil when smtp.enabled is false
func (f *FilterFactory) CreateSMTPFilter(scorer filter.EmailScorer) *filter.SMTPFilter {
	smtpCfg := f.cfg.GetSMTP()
	if !smtpCfg.Enabled {
		return nil
	}

	return filter.NewSMTPFilter(
		scorer,
		f.logger,
		smtpCfg.ListenAddress,
		filter.Headers{
			Spam:     smtpCfg.SpamHeader,
			Score:    smtpCfg.ScoreHeader,
			Reason:   smtpCfg.ReasonHeader,
			HighRisk: smtpCfg.HighRiskHeader,
		},
		filter.NewSMTPRelay(smtpCfg.RelayAddress, smtpCfg.RelayPort, f.logger),
	)
}
