package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/data"
)

// Reporter builds the report pushed to subscribers.
type Reporter interface {
	Report(ctx context.Context, req analytics.Request) analytics.Report
}

// Streamer pushes a fresh report to a symbol's group after every quote
// refresh. Register OnRefresh with the poller.
type Streamer struct {
	hub     *Hub
	reports Reporter
	encoder *Encoder
	logger  *zap.Logger
}

// NewStreamer creates a new Streamer.
func NewStreamer(hub *Hub, reports Reporter, logger *zap.Logger) (*Streamer, error) {
	enc, err := NewEncoder()
	if err != nil {
		return nil, err
	}

	return &Streamer{
		hub:     hub,
		reports: reports,
		encoder: enc,
		logger:  logger,
	}, nil
}

// OnRefresh builds and broadcasts the report for q's symbol. The report is
// still cached for late joiners when nobody is subscribed.
func (s *Streamer) OnRefresh(ctx context.Context, q *data.Quote) {
	report := s.reports.Report(ctx, analytics.Request{Symbol: q.Symbol})

	frames, err := s.encoder.Encode(report)
	if err != nil {
		s.logger.Warn("failed to encode report",
			zap.String("symbol", q.Symbol),
			zap.Error(err),
		)
		return
	}

	s.hub.BroadcastData(q.Symbol, frames)

	s.logger.Debug("broadcast report",
		zap.String("symbol", q.Symbol),
		zap.Int("jsonSize", len(frames.JSON)),
		zap.Int("protoSize", len(frames.Proto)),
	)
}

// Close releases encoder resources.
func (s *Streamer) Close() {
	s.encoder.Close()
}
