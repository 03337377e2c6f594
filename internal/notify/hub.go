package notify

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout      = 10 * time.Second
	heartbeatInterval = 30 * time.Second
)

// wsEnvelope wraps hub traffic so clients can tell alerts from heartbeats.
type wsEnvelope struct {
	Type      string    `json:"type"` // "alert" or "heartbeat"
	Alert     *Event    `json:"alert,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient is one subscribed websocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// send writes an envelope under the client's write lock.
func (c *wsClient) send(env *wsEnvelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(env)
}

// Hub broadcasts alert events to all connected websocket clients. It
// implements Sink so the notifier can treat it like any other delivery
// target.
type Hub struct {
	log     *zap.Logger
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty websocket hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// Publish broadcasts the event to every connected client. Clients whose
// write fails are dropped.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	env := &wsEnvelope{Type: "alert", Alert: &ev, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(env); err != nil {
			h.log.Debug("dropping websocket client after write error", zap.Error(err))
			h.remove(c)
		}
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers an upgraded connection and blocks until the client
// disconnects or the context is cancelled. The read loop exists only to
// detect closure; clients never send payloads.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	client := &wsClient{conn: conn}
	h.add(client)
	defer func() {
		h.remove(client)
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go h.heartbeat(ctx, client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) heartbeat(ctx context.Context, c *wsClient) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.send(&wsEnvelope{Type: "heartbeat", Timestamp: time.Now().UTC()}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
