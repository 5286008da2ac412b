package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/famescale/internal/constants"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Hub keeps the connected WebSocket clients and pushes snapshots to them.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*client]struct{}
	mu       sync.RWMutex
	workers  int
	logger   *zap.Logger
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		workers: constants.ServerConfig.BroadcastWorkers,
		logger:  logger,
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request, sends initial to the new client and keeps the
// connection until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial any) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	if initial != nil {
		if err := c.writeJSON(initial); err != nil {
			h.logger.Warn("Failed to send initial snapshot", zap.Error(err))
			c.close()
			return
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected",
		zap.String("remote", r.RemoteAddr),
		zap.Int("clients", total),
	)

	go h.readLoop(c)
}

// readLoop drains control frames and detects disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.ServerConfig.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.ServerConfig.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends msg to every client concurrently. Clients whose write
// fails are dropped.
func (h *Hub) Broadcast(msg any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(h.workers)
	for _, c := range targets {
		p.Go(func() {
			if err := c.writeJSON(msg); err != nil {
				h.logger.Debug("Dropping WebSocket client", zap.Error(err))
				h.remove(c)
			}
		})
	}
	p.Wait()
}

// Ping keeps idle connections alive.
func (h *Hub) Ping() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.ping(); err != nil {
			h.remove(c)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	targets := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range targets {
		c.close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Info("WebSocket client disconnected", zap.Int("clients", total))
	}
}

func (c *client) writeJSON(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(constants.ServerConfig.WriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(constants.ServerConfig.WriteWait))
}

func (c *client) close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
