package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/data"
)

const (
	eventSnapshot  = "snapshot"
	eventReport    = "report"
	eventHeartbeat = "heartbeat"

	clientBuffer = 10
)

// Reporter builds the report pushed to subscribers.
type Reporter interface {
	Report(ctx context.Context, req analytics.Request) analytics.Report
}

// Broadcaster streams reports for one symbol to server-sent event
// subscribers.
type Broadcaster struct {
	broadcasterID string
	symbol        string
	reports       Reporter
	logger        *zap.Logger

	mu      gosync.RWMutex
	clients map[*sseClient]bool

	// pubMu orders sequence assignment with delivery so ids reach every
	// subscriber in increasing order.
	pubMu    gosync.Mutex
	sequence uint64

	interval time.Duration
}

// sseClient represents a connected SSE subscriber.
type sseClient struct {
	id     string
	dataCh chan []byte
	doneCh chan struct{}
}

// NewBroadcaster creates a broadcaster sending a heartbeat every interval.
func NewBroadcaster(symbol string, reports Reporter, interval time.Duration, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		broadcasterID: uuid.NewString(),
		symbol:        data.NormalizeSymbol(symbol),
		reports:       reports,
		logger:        logger,
		clients:       make(map[*sseClient]bool),
		interval:      interval,
	}
}

// Run starts the periodic heartbeat loop.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("event broadcaster starting",
		zap.String("broadcaster_id", b.broadcasterID),
		zap.Duration("interval", b.interval),
	)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("event broadcaster stopping")
			return
		case <-ticker.C:
			b.publish(eventHeartbeat, func(seq uint64) any {
				return Heartbeat{
					BroadcasterID: b.broadcasterID,
					Timestamp:     time.Now().UnixMilli(),
					Sequence:      seq,
					Clients:       b.ClientCount(),
				}
			})
		}
	}
}

// OnRefresh pushes a fresh report to every subscriber. It is registered as
// a poller listener.
func (b *Broadcaster) OnRefresh(ctx context.Context, q *data.Quote) {
	if b.ClientCount() == 0 {
		return
	}
	b.publish(eventReport, func(seq uint64) any {
		return b.buildEvent(ctx, seq)
	})
}

// HandleSSE streams events until the subscriber disconnects.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Check if SSE is supported
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	client := &sseClient{
		id:     uuid.NewString(),
		dataCh: make(chan []byte, clientBuffer),
		doneCh: make(chan struct{}),
	}

	seq, snapshot := b.subscribe(r.Context(), client)
	defer b.removeClient(client)

	b.logger.Info("event client connected",
		zap.String("client_id", client.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	// Send initial snapshot
	if err := b.send(w, rc, eventSnapshot, seq, snapshot); err != nil {
		b.logger.Error("failed to send snapshot", zap.Error(err))
		return
	}

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			b.logger.Info("event client disconnected", zap.String("client_id", client.id))
			return
		case <-client.doneCh:
			return
		case eventData := <-client.dataCh:
			if _, err := w.Write(eventData); err != nil {
				b.logger.Debug("failed to write to client", zap.Error(err))
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) addClient(client *sseClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
}

func (b *Broadcaster) removeClient(client *sseClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
	close(client.doneCh)
}

// subscribe registers client and builds its snapshot under the publish
// lock, so every event queued for the client follows the snapshot id.
func (b *Broadcaster) subscribe(ctx context.Context, client *sseClient) (uint64, ReportEvent) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	b.sequence++
	seq := b.sequence
	snapshot := b.buildEvent(ctx, seq)
	b.addClient(client)
	return seq, snapshot
}

// publish assigns the next sequence and fans the event out before another
// event can take a sequence.
func (b *Broadcaster) publish(eventType string, build func(seq uint64) any) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	b.sequence++
	seq := b.sequence
	b.broadcast(eventType, seq, build(seq))
}

func (b *Broadcaster) buildEvent(ctx context.Context, seq uint64) ReportEvent {
	return ReportEvent{
		BroadcasterID: b.broadcasterID,
		Symbol:        b.symbol,
		Timestamp:     time.Now().UnixMilli(),
		Sequence:      seq,
		Report:        b.reports.Report(ctx, analytics.Request{Symbol: b.symbol}),
	}
}

func (b *Broadcaster) broadcast(eventType string, seq uint64, payload any) {
	eventData, err := formatEvent(eventType, seq, payload)
	if err != nil {
		b.logger.Warn("failed to encode event", zap.String("event", eventType), zap.Error(err))
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client.dataCh <- eventData:
		default:
			// Channel full, client is slow
			b.logger.Debug("client channel full, dropping event",
				zap.String("client_id", client.id),
				zap.String("event", eventType),
			)
		}
	}
}

func (b *Broadcaster) send(w http.ResponseWriter, rc *http.ResponseController, eventType string, seq uint64, payload any) error {
	eventData, err := formatEvent(eventType, seq, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(eventData); err != nil {
		return err
	}
	return rc.Flush()
}

func formatEvent(eventType string, seq uint64, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\nid: %d\ndata: %s\n\n", eventType, seq, jsonData)), nil
}

// ServeHTTP makes the broadcaster mountable as a route handler.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.HandleSSE(w, r)
}
