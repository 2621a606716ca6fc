package api

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/data"
)

// OpenSource builds the configured market data source: the live chart API
// or an archive of JSONL bar files.
func OpenSource(cfg *config.Config, logger *zap.Logger) (data.Source, error) {
	switch cfg.Source.Provider {
	case config.ProviderYahoo:
		return NewClient(
			cfg.Source.BaseURL,
			cfg.Source.UserAgent,
			cfg.Source.RatePerSecond,
			time.Duration(cfg.Source.TimeoutSec)*time.Second,
			time.Duration(cfg.Source.RetryDelay)*time.Second,
			cfg.Source.RetryCount,
			logger,
		).WithQuoteSeries(cfg.Refresh.QuoteInterval, cfg.Refresh.QuoteRange), nil

	case config.ProviderFile:
		date, err := cfg.Source.ResolveDataDate()
		if err != nil {
			return nil, fmt.Errorf("resolving data date: %w", err)
		}
		src, err := data.NewMemorySource(cfg.Source.DataDir, date, logger)
		if err != nil {
			return nil, fmt.Errorf("loading archive %s/%s: %w", cfg.Source.DataDir, date, err)
		}
		logger.Info("replaying archive",
			zap.String("date", date),
			zap.Strings("series", src.GetLoadedKeys()),
		)
		return src, nil

	default:
		return nil, fmt.Errorf("unknown source provider %q", cfg.Source.Provider)
	}
}
