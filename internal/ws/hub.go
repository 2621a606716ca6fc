package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/metrics"
)

// Hub manages WebSocket connections and per-symbol group subscriptions.
type Hub struct {
	name       string
	symbols    map[string]bool // groups clients may join
	encoding   Encoding        // default when the client does not ask
	clients    map[*Client]bool
	groups     map[string]map[*Client]bool // group -> clients
	latest     map[string]Frames           // group -> last broadcast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHub creates a new Hub serving the given symbols.
func NewHub(name string, symbols []string, encoding Encoding, m *metrics.Metrics, logger *zap.Logger) *Hub {
	allowed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		allowed[data.NormalizeSymbol(s)] = true
	}
	if _, ok := ParseEncoding(string(encoding)); !ok {
		encoding = EncodingJSON
	}
	return &Hub{
		name:       name,
		symbols:    allowed,
		encoding:   encoding,
		clients:    make(map[*Client]bool),
		groups:     make(map[string]map[*Client]bool),
		latest:     make(map[string]Frames),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger,
	}
}

// Run processes hub events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down", zap.String("hub", h.name))
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.setClients(count)
			h.logger.Debug("client registered",
				zap.String("hub", h.name),
				zap.String("connID", client.connID),
				zap.String("encoding", string(client.encoding)),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Remove from all groups
				for group := range client.groups {
					if clients, ok := h.groups[group]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.groups, group)
						}
					}
				}
				client.close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.setClients(count)
			h.logger.Debug("client unregistered",
				zap.String("hub", h.name),
				zap.String("connID", client.connID),
			)
		}
	}
}

func (h *Hub) setClients(n int) {
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(float64(n))
	}
}

// shutdown gracefully closes all client connections.
func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
	h.groups = make(map[string]map[*Client]bool)
	h.setClients(0)
}

// requestUnregister queues c for removal unless the hub has stopped.
func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ValidGroup reports whether clients may join group.
func (h *Hub) ValidGroup(group string) bool {
	return h.symbols[data.NormalizeSymbol(group)]
}

// JoinGroup adds a client to a group and sends it the last broadcast, if any.
func (h *Hub) JoinGroup(client *Client, group string) {
	group = data.NormalizeSymbol(group)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true
	client.groups[group] = true

	if frames, ok := h.latest[group]; ok {
		client.trySend(client.buildDataMsg(group, frames))
	}

	h.logger.Debug("client joined group",
		zap.String("hub", h.name),
		zap.String("connID", client.connID),
		zap.String("group", group),
	)
}

// LeaveGroup removes a client from a group.
func (h *Hub) LeaveGroup(client *Client, group string) {
	group = data.NormalizeSymbol(group)

	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.groups[group]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groups, group)
		}
	}
	delete(client.groups, group)

	h.logger.Debug("client left group",
		zap.String("hub", h.name),
		zap.String("connID", client.connID),
		zap.String("group", group),
	)
}

// GetActiveGroups returns all groups with at least one subscriber.
func (h *Hub) GetActiveGroups() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var groups []string
	for group, clients := range h.groups {
		if len(clients) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastData sends frames to all clients in a group. Each client gets
// the encoding it negotiated. Clients with a full buffer are disconnected.
func (h *Hub) BroadcastData(group string, frames Frames) {
	group = data.NormalizeSymbol(group)

	h.mu.Lock()
	h.latest[group] = frames
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.groups[group] {
		if !client.trySend(client.buildDataMsg(group, frames)) {
			go h.requestUnregister(client)
		}
	}
}
