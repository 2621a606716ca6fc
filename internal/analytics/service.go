package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/metrics"
	"github.com/dgnsrekt/auction-profile/internal/profile"
)

// Report is the quote snapshot merged with the session analytics, the shape
// served by the HTTP and websocket endpoints.
type Report struct {
	data.Quote
	profile.Analytics
	HistoryStale bool `json:"history_stale,omitempty"`
}

// Request selects the session to report on.
type Request struct {
	Symbol string
	// Date is any instant within the session; zero means now.
	Date time.Time
	// IBBars overrides the configured initial balance length when > 0.
	IBBars int
}

// Config names the history series analytics are computed from.
type Config struct {
	HistoryInterval string
	HistoryRange    string
	Options         profile.Options
}

// Service builds session reports from cached history and the live quote.
type Service struct {
	bars     data.BarSource
	cache    *data.BarCache
	quotes   *data.QuoteStore
	interval string
	rng      string
	opts     profile.Options
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(bars data.BarSource, cache *data.BarCache, quotes *data.QuoteStore, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Service {
	if cfg.Options.Location == nil {
		cfg.Options.Location = time.UTC
	}
	return &Service{
		bars:     bars,
		cache:    cache,
		quotes:   quotes,
		interval: cfg.HistoryInterval,
		rng:      cfg.HistoryRange,
		opts:     cfg.Options,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Location returns the timezone sessions are grouped by.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Build computes the report. When the history cannot be fetched the report
// still carries the quote and default analytics, alongside the error.
func (s *Service) Build(ctx context.Context, req Request) (Report, error) {
	symbol := data.NormalizeSymbol(req.Symbol)
	quote := s.quote(symbol)
	report := Report{Quote: *quote, Analytics: profile.EmptyAnalytics()}

	bars, stale, err := s.cache.Fetch(ctx, s.timed(), symbol, s.interval, s.rng)
	if err != nil {
		return report, fmt.Errorf("fetching %s history: %w", symbol, err)
	}

	ref := req.Date
	if ref.IsZero() {
		ref = s.now()
	}
	opts := s.opts
	if req.IBBars > 0 {
		opts.IBBars = req.IBBars
	}

	start := time.Now()
	report.Analytics = profile.Aggregate(bars, s.priceFor(quote, bars, ref), ref, opts)
	report.HistoryStale = stale

	if s.metrics != nil {
		s.metrics.AnalyticsLatency.Observe(time.Since(start).Seconds())
		s.metrics.TailsDetected.Set(float64(len(report.AllTails)))
	}
	return report, nil
}

// Report is Build for callers that always answer: failures are logged and
// the default-valued report is returned.
func (s *Service) Report(ctx context.Context, req Request) Report {
	report, err := s.Build(ctx, req)
	if err != nil {
		s.logger.Warn("serving default analytics",
			zap.String("symbol", data.NormalizeSymbol(req.Symbol)),
			zap.Error(err),
		)
	}
	return report
}

func (s *Service) quote(symbol string) *data.Quote {
	if q, ok := s.quotes.Load(); ok && q.Symbol == symbol {
		return q
	}
	return data.EmptyQuote(symbol)
}

// priceFor uses the live price for today's session and the session's last
// close for any earlier one.
func (s *Service) priceFor(quote *data.Quote, bars []data.Bar, ref time.Time) *float64 {
	if data.SameSession(ref, s.now(), s.opts.Location) {
		return profile.LivePrice(quote)
	}
	return ClosingPrice(bars, ref, s.opts.Location)
}

// ClosingPrice is the last close of the session containing day, nil when the
// session has no bars.
func ClosingPrice(bars []data.Bar, day time.Time, loc *time.Location) *float64 {
	session := data.SessionBars(bars, day, loc)
	if len(session) == 0 {
		return nil
	}
	last := session[len(session)-1].Close
	return &last
}

func (s *Service) timed() data.BarSource {
	if s.metrics == nil {
		return s.bars
	}
	return timedSource{src: s.bars, metrics: s.metrics}
}

// timedSource records upstream latency per series.
type timedSource struct {
	src     data.BarSource
	metrics *metrics.Metrics
}

func (t timedSource) FetchBars(ctx context.Context, symbol, interval, rng string) ([]data.Bar, error) {
	start := time.Now()
	bars, err := t.src.FetchBars(ctx, symbol, interval, rng)
	t.metrics.FetchLatency.WithLabelValues(interval + "/" + rng).Observe(time.Since(start).Seconds())
	return bars, err
}
