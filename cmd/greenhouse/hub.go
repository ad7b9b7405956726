package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient is one dashboard websocket connection.
type wsClient struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	hello func() []byte
}

// Hub fans state notifications out to websocket clients. A client that
// cannot keep up is dropped.
type Hub struct {
	logger *slog.Logger

	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			close(c.send)
		}
		h.clients = nil
		close(h.done)
	}()

	for {
		select {
		case c := <-h.register:
			// No broadcast is handled between adding the client and
			// queueing its hello, so none is lost in between.
			h.clients[c] = struct{}{}
			if c.hello != nil {
				if msg := c.hello(); msg != nil {
					c.send <- msg
				}
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Publish queues msg for every client without blocking. Messages are
// dropped while the broadcast queue is full.
func (h *Hub) Publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		if h.logger != nil {
			h.logger.Warn("websocket broadcast queue full, dropping message")
		}
	}
}

// ServeWS upgrades the request and registers the connection. hello, if not
// nil, is called on the hub goroutine once the client is registered; its
// message is sent before any broadcast published after that point.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, hello func() []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, wsSendBuffer), hello: hello}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards client messages and detects disconnects.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.hub.logger != nil {
				c.hub.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

// writePump is the only writer of the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
