package broadcast

import (
	"sync"
	"time"

	"gomoku/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Client wraps a WebSocket connection so the hub and the connection's own
// handler can write to it from different goroutines.
type Client struct {
	conn     *websocket.Conn
	playerID string
	mu       sync.Mutex
}

// NewClient wraps conn for playerID.
func NewClient(conn *websocket.Conn, playerID string) *Client {
	return &Client{conn: conn, playerID: playerID}
}

// WriteJSON writes v as a single text frame.
func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub fans room snapshots out to WebSocket and SSE subscribers. Each
// subscriber only receives snapshots its player is allowed to read.
type Hub struct {
	wsClients  map[string]map[*Client]bool
	sseClients map[string]map[chan models.Snapshot]string
	closed     bool
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a new broadcast hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		wsClients:  make(map[string]map[*Client]bool),
		sseClients: make(map[string]map[chan models.Snapshot]string),
		logger:     logger,
	}
}

// RegisterWS adds a WebSocket client for a room. A closed hub closes the
// connection instead.
func (h *Hub) RegisterWS(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = c.conn.Close()
		return
	}
	if h.wsClients[roomID] == nil {
		h.wsClients[roomID] = make(map[*Client]bool)
	}
	h.wsClients[roomID][c] = true
	h.logger.Debug("websocket subscribed",
		zap.String("room_id", roomID),
		zap.String("player_id", c.playerID),
		zap.Int("subscribers", h.subscribers(roomID)),
	)
}

// UnregisterWS removes a WebSocket client for a room.
func (h *Hub) UnregisterWS(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeWS(roomID, c)
}

func (h *Hub) removeWS(roomID string, c *Client) {
	delete(h.wsClients[roomID], c)
	if len(h.wsClients[roomID]) == 0 {
		delete(h.wsClients, roomID)
	}
}

// RegisterSSE adds an SSE channel for playerID in a room. A closed hub
// closes the channel instead.
func (h *Hub) RegisterSSE(roomID, playerID string, ch chan models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return
	}
	if h.sseClients[roomID] == nil {
		h.sseClients[roomID] = make(map[chan models.Snapshot]string)
	}
	h.sseClients[roomID][ch] = playerID
	h.logger.Debug("sse subscribed",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("subscribers", h.subscribers(roomID)),
	)
}

// UnregisterSSE removes an SSE channel for a room and closes it.
func (h *Hub) UnregisterSSE(roomID string, ch chan models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sseClients[roomID][ch]; !ok {
		return
	}
	delete(h.sseClients[roomID], ch)
	if len(h.sseClients[roomID]) == 0 {
		delete(h.sseClients, roomID)
	}
	close(ch)
}

func (h *Hub) subscribers(roomID string) int {
	return len(h.wsClients[roomID]) + len(h.sseClients[roomID])
}

// Close ends every subscription: SSE channels are closed and WebSocket
// connections are torn down so their read loops return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for roomID, subs := range h.sseClients {
		for ch := range subs {
			close(ch)
		}
		delete(h.sseClients, roomID)
	}
	for roomID, clients := range h.wsClients {
		for c := range clients {
			_ = c.conn.Close()
		}
		delete(h.wsClients, roomID)
	}
}

// Publish sends a snapshot to every subscriber of the room that may read
// it. Slow SSE subscribers miss updates rather than block the publisher;
// WebSocket clients that fail a write are dropped.
func (h *Hub) Publish(roomID string, snapshot models.Snapshot) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.wsClients[roomID]))
	for c := range h.wsClients[roomID] {
		if snapshot.VisibleTo(c.playerID) {
			clients = append(clients, c)
		}
	}
	for ch, playerID := range h.sseClients[roomID] {
		if !snapshot.VisibleTo(playerID) {
			continue
		}
		select {
		case ch <- snapshot:
		default:
			h.logger.Debug("sse subscriber lagging", zap.String("room_id", roomID))
		}
	}
	h.mu.RUnlock()

	msg := StateMessage(snapshot)
	for _, c := range clients {
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Debug("websocket write failed", zap.String("room_id", roomID), zap.Error(err))
			h.mu.Lock()
			h.removeWS(roomID, c)
			h.mu.Unlock()
			_ = c.conn.Close()
		}
	}
}
