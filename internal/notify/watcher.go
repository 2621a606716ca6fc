package notify

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/metrics"
)

// Reporter builds the report the watcher inspects.
type Reporter interface {
	Report(ctx context.Context, req analytics.Request) analytics.Report
}

// Watcher alerts when the live price comes within proximity of the
// nearest unfilled tail. Each tail is alerted once until a different tail
// becomes the nearest one. Register OnRefresh with the poller.
type Watcher struct {
	reports       Reporter
	notifier      Notifier
	proximity     float64
	minConfidence float64
	metrics       *metrics.Metrics
	logger        *zap.Logger

	mu   sync.Mutex
	last map[string]string // symbol -> last alerted tail
}

func NewWatcher(reports Reporter, notifier Notifier, cfg *Config, m *metrics.Metrics, logger *zap.Logger) *Watcher {
	return &Watcher{
		reports:       reports,
		notifier:      notifier,
		proximity:     cfg.Proximity,
		minConfidence: cfg.MinConfidence,
		metrics:       m,
		logger:        logger,
		last:          make(map[string]string),
	}
}

// OnRefresh checks the new snapshot against the current opportunity.
func (w *Watcher) OnRefresh(ctx context.Context, q *data.Quote) {
	if !q.HasPrice() {
		return
	}

	report := w.reports.Report(ctx, analytics.Request{Symbol: q.Symbol})
	opp := report.Opportunity
	if opp.Empty() || opp.Kind == nil || opp.Price == nil || opp.DistanceFromCurrentPrice == nil {
		w.forget(q.Symbol)
		return
	}

	key := fmt.Sprintf("%s@%.2f", *opp.Kind, *opp.Price)
	w.mu.Lock()
	if prev, ok := w.last[q.Symbol]; ok && prev != key {
		delete(w.last, q.Symbol)
	}
	alerted := w.last[q.Symbol] == key
	w.mu.Unlock()
	if alerted {
		return
	}

	if math.Abs(*opp.DistanceFromCurrentPrice) > w.proximity {
		return
	}
	if opp.Confidence != nil && *opp.Confidence < w.minConfidence {
		return
	}

	if err := w.notifier.SendOpportunity(ctx, q.Symbol, q.Price, opp); err != nil {
		w.count("failure")
		w.logger.Warn("opportunity alert failed",
			zap.String("symbol", q.Symbol),
			zap.String("tail", key),
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	w.last[q.Symbol] = key
	w.mu.Unlock()
	w.count("success")

	w.logger.Info("opportunity alert sent",
		zap.String("symbol", q.Symbol),
		zap.String("tail", key),
		zap.Float64("price", q.Price),
	)
}

// forget clears the alert mark once no tail is nearest.
func (w *Watcher) forget(symbol string) {
	w.mu.Lock()
	delete(w.last, symbol)
	w.mu.Unlock()
}

func (w *Watcher) count(result string) {
	if w.metrics != nil {
		w.metrics.NotificationsSent.WithLabelValues("opportunity", result).Inc()
	}
}
