package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // CORS is enforced on the HTTP API only
}

// frame is one outbound websocket message.
type frame struct {
	msgType int
	data    []byte
}

// Client represents a WebSocket client connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan frame
	connID   string
	groups   map[string]bool
	encoding Encoding
	logger   *zap.Logger

	// closed is signalled instead of closing send.
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// ServeHTTP upgrades the request. Query parameters: encoding (json, zstd or
// proto) and symbol, which joins that group immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	encoding := h.encoding
	if raw := r.URL.Query().Get("encoding"); raw != "" {
		e, ok := ParseEncoding(raw)
		if !ok {
			http.Error(w, "unsupported encoding", http.StatusBadRequest)
			return
		}
		encoding = e
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol != "" && !h.ValidGroup(symbol) {
		http.Error(w, "unknown symbol", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan frame, sendBufferSize),
		connID:   uuid.New().String(),
		groups:   make(map[string]bool),
		encoding: encoding,
		logger:   h.logger,
		closed:   make(chan struct{}),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	client.send <- frame{websocket.TextMessage, buildConnectedMessage(client.connID, encoding)}

	go client.writePump()
	go client.readPump()

	if symbol != "" {
		h.JoinGroup(client, symbol)
	}
}

// trySend queues f without blocking and reports whether it fit.
func (c *Client) trySend(f frame) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.requestUnregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(f.msgType, f.data); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming control message.
func (c *Client) handleMessage(data []byte) {
	msg, err := parseUpstreamMessage(data)
	if err != nil {
		c.logger.Debug("failed to parse upstream message",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		return
	}

	switch m := msg.(type) {
	case *joinGroupRequest:
		ok := c.hub.ValidGroup(m.group)
		if ok {
			c.hub.JoinGroup(c, m.group)
		} else {
			c.logger.Debug("invalid group name",
				zap.String("connID", c.connID),
				zap.String("group", m.group),
			)
		}
		if m.ackID != nil {
			c.trySend(frame{websocket.TextMessage, buildAckMessage(*m.ackID, ok)})
		}

	case *leaveGroupRequest:
		c.hub.LeaveGroup(c, m.group)
		if m.ackID != nil {
			c.trySend(frame{websocket.TextMessage, buildAckMessage(*m.ackID, true)})
		}

	case *pingRequest:
		c.trySend(frame{websocket.TextMessage, buildPongMessage()})
	}
}

// buildDataMsg creates a data frame in this client's encoding.
func (c *Client) buildDataMsg(group string, frames Frames) frame {
	switch c.encoding {
	case EncodingZstd:
		return frame{websocket.BinaryMessage, frames.Zstd}
	case EncodingProto:
		return frame{websocket.BinaryMessage, frames.Proto}
	default:
		return frame{websocket.TextMessage, buildDataMessage(group, frames.JSON)}
	}
}
