package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/metrics"
	"cryptoSignalDash/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBufSize  = 64
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served locally; cross-origin GETs are harmless here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans events out to connected WebSocket clients. It implements
// ports.EventPublisher so the rest of the service never sees connection
// handling.
type Hub struct {
	logger  ports.Logger
	metrics *metrics.Registry

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Run must be called before events are published.
func NewHub(logger ports.Logger, m *metrics.Registry) *Hub {
	return &Hub{
		logger:     logger,
		metrics:    m,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
	}
}

// Run owns the client set. It exits when ctx is cancelled, closing every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setConnected(0)
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setConnected(len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setConnected(len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop the connection rather than block
					// the whole fan-out.
					delete(h.clients, c)
					close(c.send)
					h.setConnected(len(h.clients))
				}
			}
		}
	}
}

// Publish implements ports.EventPublisher. Marshal failures are logged and
// dropped; events are fire-and-forget.
func (h *Hub) Publish(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to encode event", map[string]interface{}{
			"type": string(event.Type),
		})
		return
	}
	if h.metrics != nil {
		h.metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), "Event broadcast buffer full, dropping event", map[string]interface{}{
			"type": string(event.Type),
		})
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and attaches it
// to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), err, "WebSocket upgrade failed", map[string]interface{}{
			"remote": r.RemoteAddr,
		})
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientBufSize)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (h *Hub) setConnected(n int) {
	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(n))
	}
}

// readPump drains inbound frames so close and pong control messages are
// processed. Clients are not expected to send data.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
