package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ornithopter83/selftrack/internal/channel"
	"github.com/ornithopter83/selftrack/internal/protocol"
	"github.com/ornithopter83/selftrack/internal/session"
)

// Pages are served from this host, so the default same-origin check applies.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Session is the receiver state a page needs when it connects.
type Session interface {
	Token() session.Token
	URLs() session.URLs
	Channel() *channel.Channel
	Geometry() *protocol.Geometry
	Overlay() []byte
}

// ServeWs returns an http.HandlerFunc that attaches a receiver page to the
// session. The page gets INIT exactly once, then the current geometry and
// overlay.
func ServeWs(hub *Hub, s Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := &Client{
			Hub:     hub,
			Conn:    conn,
			Inbound: s.Channel(),
			Send:    make(chan outbound, sendBuffer),
		}

		urls := s.URLs()
		for _, msg := range []any{
			protocol.NewInit(s.Token().String(), session.ModeReceiver, urls.Receiver),
			s.Geometry(),
		} {
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("encode page greeting", "error", err)
				conn.Close()
				return
			}
			client.Send <- outbound{kind: websocket.TextMessage, data: data}
		}
		if png := s.Overlay(); png != nil {
			client.Send <- outbound{kind: websocket.BinaryMessage, data: png}
		}

		if !hub.register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
