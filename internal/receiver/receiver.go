package receiver

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ornithopter83/selftrack/internal/channel"
	"github.com/ornithopter83/selftrack/internal/config"
	"github.com/ornithopter83/selftrack/internal/geometry"
	"github.com/ornithopter83/selftrack/internal/host"
	"github.com/ornithopter83/selftrack/internal/overlay"
	"github.com/ornithopter83/selftrack/internal/pose"
	"github.com/ornithopter83/selftrack/internal/protocol"
	"github.com/ornithopter83/selftrack/internal/session"
)

const (
	loopQueueSize = 256

	// maxCoalesced forces a repaint when the loop never goes idle.
	maxCoalesced = 30
)

// Sink observes what the receiver shows. Methods are called on the event
// loop and must not block.
type Sink interface {
	OverlayChanged(png []byte)
	GeometryChanged(g *protocol.Geometry)
}

// Exporter receives every accepted frame. Offer must not block.
type Exporter interface {
	Offer(frame pose.Frame)
}

// Snapshot is a copy of the receiver state taken on the event loop.
type Snapshot struct {
	Token    session.Token
	URLs     session.URLs
	Viewport geometry.Viewport
	Client   image.Point
	Position image.Point

	Frames    uint64
	LastFrame time.Time
	Markers   []MarkerState
	Visible   []overlay.Placement
	Channel   channel.Stats
}

// MarkerState is the confidence of one configured marker in the current frame.
type MarkerState struct {
	Marker     pose.Marker
	Visibility float64
	Drawn      bool
}

// Receiver is one pairing session: it owns the window, the landmark store
// and the overlay for as long as the receiver runs.
type Receiver struct {
	token session.Token
	urls  session.URLs

	loop     *host.Loop
	window   *host.Window
	geometry *geometry.Sync
	store    *pose.Store
	renderer *overlay.Renderer
	channel  *channel.Channel

	sinks    []Sink
	exporter Exporter
	placed   []overlay.Placement
	dirty    bool
	changes  int

	encoder png.Encoder
	overlay atomic.Pointer[[]byte]
	geo     atomic.Pointer[protocol.Geometry]

	closeOnce sync.Once
}

// New creates the receiver session for token.
func New(cfg *config.Config, token session.Token) *Receiver {
	loop := host.NewLoop(loopQueueSize)
	window := host.NewWindow(cfg.Display, cfg.Header)

	r := &Receiver{
		token:    token,
		urls:     cfg.URLs(token),
		loop:     loop,
		window:   window,
		store:    pose.NewStore(),
		renderer: overlay.NewRenderer(cfg.Markers, cfg.Mirror),
		channel:  channel.New(loop, cfg.Markers.MinLandmarks()),
		encoder:  png.Encoder{CompressionLevel: png.BestSpeed},
	}
	r.geometry = geometry.NewSync(window, geometry.Viewport{Width: cfg.Viewport.X, Height: cfg.Viewport.Y})
	r.geo.Store(r.currentGeometry())

	r.channel.OnPose(r.handlePose)
	r.channel.OnResize(r.handleResize)
	loop.OnIdle(r.flush)
	r.Invalidate()
	return r
}

func (r *Receiver) Token() session.Token {
	return r.token
}

func (r *Receiver) URLs() session.URLs {
	return r.urls
}

// Channel returns the message channel the relay page feeds.
func (r *Receiver) Channel() *channel.Channel {
	return r.channel
}

// AddSink registers an observer. Call before Run.
func (r *Receiver) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// SetExporter registers the frame exporter. Call before Run.
func (r *Receiver) SetExporter(e Exporter) {
	r.exporter = e
}

// Run drives the event loop until ctx is cancelled or Close is called.
func (r *Receiver) Run(ctx context.Context) error {
	return r.loop.Run(ctx)
}

// Close ends the session.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() {
		r.loop.Close()
	})
}

// Done is closed when the session has ended.
func (r *Receiver) Done() <-chan struct{} {
	return r.loop.Done()
}

// Invalidate asks for a repaint of the overlay. Repaints are coalesced and
// happen once the loop has no queued work left.
func (r *Receiver) Invalidate() {
	r.loop.Post(r.invalidate)
}

// Overlay returns the most recently painted overlay as PNG.
func (r *Receiver) Overlay() []byte {
	if p := r.overlay.Load(); p != nil {
		return *p
	}
	return nil
}

// Geometry returns the current surface geometry.
func (r *Receiver) Geometry() *protocol.Geometry {
	return r.geo.Load()
}

// Snapshot copies the receiver state.
func (r *Receiver) Snapshot(ctx context.Context) (Snapshot, error) {
	s := Snapshot{Token: r.token, URLs: r.urls}
	err := r.loop.Invoke(ctx, func() {
		r.flush()
		s.Viewport = r.geometry.Viewport()
		s.Client = r.window.ClientSize()
		s.Position = r.window.Position()
		s.Frames = r.store.Published()
		s.LastFrame = r.store.Updated()
		s.Visible = append([]overlay.Placement(nil), r.placed...)
		s.Markers = r.markerStates()
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.Channel = r.channel.Stats()
	return s, nil
}

func (r *Receiver) markerStates() []MarkerState {
	frame, _ := r.store.Current()
	states := make([]MarkerState, 0, len(r.renderer.Markers().Markers))
	for _, m := range r.renderer.Markers().Markers {
		st := MarkerState{Marker: m}
		if l, ok := frame.At(m.Index); ok {
			st.Visibility = l.Visibility
		}
		for _, p := range r.placed {
			if p.Marker.Index == m.Index {
				st.Drawn = true
				break
			}
		}
		states = append(states, st)
	}
	return states
}

func (r *Receiver) handlePose(frame pose.Frame) {
	r.store.Publish(frame)
	if r.exporter != nil {
		r.exporter.Offer(frame)
	}
	r.invalidate()
}

func (r *Receiver) handleResize(width, height int) {
	if !r.geometry.Apply(width, height) {
		return
	}

	g := r.currentGeometry()
	r.geo.Store(g)
	slog.Info("window resized", "viewport", r.geometry.Viewport(), "position", r.window.Position())
	for _, s := range r.sinks {
		s.GeometryChanged(g)
	}
	r.invalidate()
}

func (r *Receiver) currentGeometry() *protocol.Geometry {
	vp := r.geometry.Viewport()
	return protocol.NewGeometry(vp.Width, vp.Height, r.window.Header())
}

func (r *Receiver) invalidate() {
	r.dirty = true
	r.changes++
	if r.changes >= maxCoalesced {
		r.flush()
	}
}

// flush repaints if anything changed since the last paint.
func (r *Receiver) flush() {
	if !r.dirty {
		return
	}
	r.dirty = false
	r.changes = 0
	r.repaint()
}

func (r *Receiver) repaint() {
	canvas := r.window.Overlay
	r.placed = r.renderer.Render(canvas.Image(), r.store, r.geometry.Viewport())

	var buf bytes.Buffer
	if err := r.encoder.Encode(&buf, canvas.Image()); err != nil {
		slog.Error("encode overlay", "error", err)
		return
	}
	data := buf.Bytes()
	r.overlay.Store(&data)

	for _, s := range r.sinks {
		s.OverlayChanged(data)
	}
}
