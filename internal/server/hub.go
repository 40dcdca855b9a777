package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/ornithopter83/selftrack/internal/protocol"
)

// outbound is one websocket frame queued for a page.
type outbound struct {
	kind int
	data []byte
}

// Hub fans overlay and geometry updates out to every connected receiver page.
type Hub struct {
	// clients holds the registered pages. Only Run touches it.
	clients map[*Client]bool

	// Register is a channel for registering new pages.
	Register chan *Client

	// Unregister is a channel for unregistering pages.
	Unregister chan *Client

	// broadcast carries text messages for all pages.
	broadcast chan outbound

	// overlay holds at most one PNG; a newer paint replaces an undelivered one.
	overlay chan []byte

	done  chan struct{}
	pages atomic.Int32
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan outbound, 16),
		overlay:    make(chan []byte, 1),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main processing loop. It is the single goroutine
// that manages the set of pages.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.pages.Store(0)
			return

		case client := <-h.Register:
			h.clients[client] = true
			h.pages.Store(int32(len(h.clients)))
			slog.Info("receiver page connected", "remote", client.Conn.RemoteAddr(), "pages", len(h.clients))

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.pages.Store(int32(len(h.clients)))
				slog.Info("receiver page disconnected", "remote", client.Conn.RemoteAddr(), "pages", len(h.clients))
			}

		case msg := <-h.broadcast:
			h.fanout(msg)

		case png := <-h.overlay:
			h.fanout(outbound{kind: websocket.BinaryMessage, data: png})
		}
	}
}

func (h *Hub) fanout(msg outbound) {
	for client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			slog.Debug("receiver page is behind, frame dropped", "remote", client.Conn.RemoteAddr())
		}
	}
}

// Pages returns the number of connected receiver pages.
func (h *Hub) Pages() int {
	return int(h.pages.Load())
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// OverlayChanged queues a repainted overlay for all pages without blocking.
func (h *Hub) OverlayChanged(png []byte) {
	for {
		select {
		case h.overlay <- png:
			return
		default:
		}
		select {
		case <-h.overlay:
		default:
		}
	}
}

// GeometryChanged tells all pages about new surface bounds.
func (h *Hub) GeometryChanged(g *protocol.Geometry) {
	data, err := json.Marshal(g)
	if err != nil {
		slog.Error("encode geometry", "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{kind: websocket.TextMessage, data: data}:
	default:
		slog.Warn("geometry update dropped, hub is not keeping up", "geometry", g.String())
	}
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}
