package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ornithopter83/selftrack/internal/qr"
)

//go:embed receiver.html
var pages embed.FS

const shutdownTimeout = 5 * time.Second

// Server serves the receiver page, its websocket and the session images.
type Server struct {
	session Session
	hub     *Hub
	qr      []byte
}

// New prepares a server for s.
func New(s Session) (*Server, error) {
	code, err := qr.PNG(s.URLs().Sender, qr.Size)
	if err != nil {
		return nil, err
	}
	return &Server{
		session: s,
		hub:     NewHub(),
		qr:      code,
	}, nil
}

// Hub returns the page hub. Register it as a receiver sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("/ws", ServeWs(s.hub, s.session))
	mux.HandleFunc("GET /qr.png", s.handleQR)
	mux.HandleFunc("GET /overlay.png", s.handleOverlay)
	mux.HandleFunc("/health", healthCheckHandler)
	return mux
}

// Serve runs the hub and serves HTTP on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		slog.Info("serving receiver page", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Receiver is healthy."))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := pages.ReadFile("receiver.html")
	if err != nil {
		slog.Error("read receiver page", "error", err)
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(page); err != nil {
		slog.Debug("write receiver page", "error", err)
	}
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	writePNG(w, s.qr)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	png := s.session.Overlay()
	if png == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		slog.Debug("write image", "error", err)
	}
}
