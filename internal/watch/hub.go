// Copyright (C) 2016, Heiko Koehler

package watch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

type client struct {
	thing string
	conn  *websocket.Conn
	send  chan Update
}

// Hub pushes updates to the browsers showing a thing.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeThing upgrades the request and sends initial followed by every
// update of thing until the browser goes away.
func (h *Hub) ServeThing(w http.ResponseWriter, r *http.Request, thing string, initial Update) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{"thing": thing, "url": r.URL.String()}).Warnf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{thing: thing, conn: conn, send: make(chan Update, 8)}
	c.send <- initial
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.WithField("thing", thing).Debugf("websocket client %s connected", r.RemoteAddr)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards incoming messages and notices the close.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithField("thing", c.thing).Warnf("websocket error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for u := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(u); err != nil {
			log.WithField("thing", c.thing).Warnf("websocket write failed: %v", err)
			h.remove(c)
			// drain until remove closed the channel
			for range c.send {
			}
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Broadcast queues u for every client of its thing. Slow clients lose it.
func (h *Hub) Broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.thing != u.Thing {
			continue
		}
		select {
		case c.send <- u:
		default:
		}
	}
}

// Run broadcasts updates until ctx is done or the channel closes, then
// disconnects all clients.
func (h *Hub) Run(ctx context.Context, updates <-chan Update) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(u)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
