package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/metrics"
)

var ErrRefreshInProgress = errors.New("refresh already in progress")

// Result is the outcome of one refresh attempt.
type Result struct {
	Quote     *data.Quote
	Err       error
	FetchedAt time.Time
	Skipped   bool // outside market hours
}

// OK reports whether the attempt produced a new snapshot.
func (r Result) OK() bool {
	return r.Err == nil && !r.Skipped && r.Quote != nil
}

// Listener is called after every successful refresh with the new snapshot.
type Listener func(ctx context.Context, q *data.Quote)

// Status summarizes refresh health for the health endpoint.
type Status struct {
	Symbol              string    `json:"symbol"`
	Schedule            string    `json:"schedule"`
	LastSuccess         time.Time `json:"last_success"`
	LastAttempt         time.Time `json:"last_attempt"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Options controls scheduling.
type Options struct {
	// Schedule is a cron expression; descriptors such as "@every 60s" work.
	Schedule string
	// Gate, when set, skips scheduled ticks for which it returns false.
	Gate func(time.Time) bool
}

// Poller periodically replaces the shared quote snapshot. A failed refresh
// leaves the previous snapshot in place.
type Poller struct {
	source   data.QuoteSource
	store    *data.QuoteStore
	symbol   string
	schedule string
	gate     func(time.Time) bool
	cron     *cron.Cron
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	listeners []Listener

	refreshMu sync.Mutex // prevents overlapping refreshes

	stateMu sync.RWMutex
	status  Status

	ctx    context.Context
	cancel context.CancelFunc
}

func New(source data.QuoteSource, store *data.QuoteStore, symbol string, opts Options, m *metrics.Metrics, logger *zap.Logger) *Poller {
	symbol = data.NormalizeSymbol(symbol)
	return &Poller{
		source:   source,
		store:    store,
		symbol:   symbol,
		schedule: opts.Schedule,
		gate:     opts.Gate,
		cron:     cron.New(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		status:   Status{Symbol: symbol, Schedule: opts.Schedule},
	}
}

// OnRefresh registers a listener. Register before Start.
func (p *Poller) OnRefresh(l Listener) {
	p.listeners = append(p.listeners, l)
}

// Symbol returns the polled instrument.
func (p *Poller) Symbol() string {
	return p.symbol
}

// Fetch retrieves a snapshot without publishing it.
func (p *Poller) Fetch(ctx context.Context) Result {
	q, err := p.source.FetchQuote(ctx, p.symbol)
	return Result{Quote: q, Err: err, FetchedAt: p.now()}
}

// Refresh fetches and publishes a snapshot now. It returns
// ErrRefreshInProgress when another refresh is running.
func (p *Poller) Refresh(ctx context.Context) (Result, error) {
	if !p.refreshMu.TryLock() {
		return Result{}, ErrRefreshInProgress
	}
	defer p.refreshMu.Unlock()

	r := p.Fetch(ctx)
	p.apply(ctx, r)
	if r.Err != nil {
		return r, fmt.Errorf("refreshing %s: %w", p.symbol, r.Err)
	}
	return r, nil
}

func (p *Poller) apply(ctx context.Context, r Result) {
	p.stateMu.Lock()
	p.status.LastAttempt = r.FetchedAt
	if r.OK() {
		p.status.LastSuccess = r.FetchedAt
		p.status.LastError = ""
		p.status.ConsecutiveFailures = 0
	} else if r.Err != nil {
		p.status.LastError = r.Err.Error()
		p.status.ConsecutiveFailures++
	}
	failures := p.status.ConsecutiveFailures
	p.stateMu.Unlock()

	if r.Err != nil {
		p.logger.Warn("quote refresh failed, keeping previous snapshot",
			zap.String("symbol", p.symbol),
			zap.Int("consecutiveFailures", failures),
			zap.Error(r.Err),
		)
		p.count("failure")
		return
	}
	if !r.OK() {
		return
	}

	p.store.Swap(r.Quote)
	p.count("success")
	if p.metrics != nil {
		p.metrics.LastRefresh.Set(float64(r.FetchedAt.Unix()))
	}

	p.logger.Debug("quote refreshed",
		zap.String("symbol", p.symbol),
		zap.Float64("price", r.Quote.Price),
		zap.Int("bars", len(r.Quote.Bars)),
	)

	for _, l := range p.listeners {
		l(ctx, r.Quote)
	}
}

func (p *Poller) count(result string) {
	if p.metrics != nil {
		p.metrics.RefreshTotal.WithLabelValues(result).Inc()
	}
}

// tick is the scheduled refresh.
func (p *Poller) tick() {
	if p.gate != nil && !p.gate(p.now()) {
		p.count("skipped")
		return
	}
	if _, err := p.Refresh(p.ctx); errors.Is(err, ErrRefreshInProgress) {
		p.logger.Debug("skipping tick, refresh in progress", zap.String("symbol", p.symbol))
	}
}

// Start performs an initial refresh so the first readers see data, then
// schedules the periodic refresh. The initial refresh ignores the gate.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	if _, err := p.cron.AddFunc(p.schedule, p.tick); err != nil {
		return fmt.Errorf("register refresh schedule %q: %w", p.schedule, err)
	}

	_, _ = p.Refresh(p.ctx)

	p.cron.Start()
	p.logger.Info("quote poller started",
		zap.String("symbol", p.symbol),
		zap.String("schedule", p.schedule),
	)
	return nil
}

// Stop cancels any running refresh and halts scheduling.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.cron.Stop().Done()
	p.logger.Info("quote poller stopped", zap.String("symbol", p.symbol))
}

// Status returns the refresh health summary.
func (p *Poller) Status() Status {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.status
}
