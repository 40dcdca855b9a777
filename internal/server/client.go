package server

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - a full pose frame is a few KB

	sendBuffer = 64
)

// Inbound receives what a receiver page relays from the embedded web content.
type Inbound interface {
	OnMessage(raw string)
	OnBinary(raw []byte)
}

// Client is a wrapper for a single receiver page connection.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	// Inbound is where page messages are delivered.
	Inbound Inbound

	// Send is a buffered channel for all outbound frames. WritePump is
	// its only reader.
	Send chan outbound
}

// ReadPump pumps messages from the websocket connection to the message
// channel. It is the only reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("receiver page read failed", "remote", c.Conn.RemoteAddr(), "error", err)
			}
			return
		}

		switch kind {
		case websocket.TextMessage:
			c.Inbound.OnMessage(string(data))
		case websocket.BinaryMessage:
			c.Inbound.OnBinary(data)
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection. It is
// the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(msg.kind, msg.data); err != nil {
				slog.Debug("receiver page write failed", "remote", c.Conn.RemoteAddr(), "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
