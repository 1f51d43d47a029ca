// Package livefeed broadcasts dispatched events to connected WebSocket
// clients, for a dashboard watching an investigation in progress.
package livefeed

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

// client is one connected WebSocket consumer of the feed.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out broadcast events to every connected client. A message is
// dropped for a client whose send buffer is full rather than blocking the
// whole feed on it.
type Hub struct {
	upgrader   websocket.Upgrader
	mu         sync.Mutex
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub builds a hub whose CheckOrigin only allows origins in
// allowedOrigins (scheme+host, e.g. "https://dashboard.example.com"). An
// empty allowedOrigins allows any origin, for local development.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
	go h.run()
	return h
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if strings.EqualFold(origin, a) || strings.EqualFold(parsed.Host, a) {
				return true
			}
		}
		return false
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					log.Warn().Msg("livefeed client buffer full, dropping message")
				}
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

// Stop shuts the hub's event loop down.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast pushes event to every connected client. Drops the event
// rather than blocking if the hub's internal channel is saturated.
func (h *Hub) Broadcast(event events.ParanormalEvent) {
	payload := map[string]interface{}{
		"type":  "event",
		"event": event,
	}
	message, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal livefeed event")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Warn().Msg("livefeed broadcast channel full, dropping event")
	}
}

// ServeHTTP upgrades the connection to a WebSocket and starts pumping
// broadcast events to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("livefeed upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
