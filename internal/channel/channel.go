package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ornithopter83/selftrack/internal/geometry"
	"github.com/ornithopter83/selftrack/internal/pose"
	"github.com/ornithopter83/selftrack/internal/protocol"
)

var errNotDispatched = errors.New("event loop stopped")

// Dispatcher runs functions on the thread that owns the receiver's state.
type Dispatcher interface {
	Post(fn func()) bool
}

// Stats counts how inbound messages were handled.
type Stats struct {
	Poses           uint64
	Resizes         uint64
	Malformed       uint64
	Incomplete      uint64
	InvalidGeometry uint64
	Ignored         uint64
	Undelivered     uint64
}

// Dropped is the total number of discarded messages.
func (s Stats) Dropped() uint64 {
	return s.Malformed + s.Incomplete + s.InvalidGeometry + s.Undelivered
}

// Channel is the single ingress for messages coming from the relay page.
//
// OnMessage and OnBinary may be called from any goroutine. Decoding and
// validation happen on the caller; accepted messages are handed to the
// registered handlers through the Dispatcher, so handlers always run on
// the dispatcher's thread and in arrival order.
type Channel struct {
	dispatcher   Dispatcher
	minLandmarks int

	onPose   func(pose.Frame)
	onResize func(width, height int)

	poses           atomic.Uint64
	resizes         atomic.Uint64
	malformed       atomic.Uint64
	incomplete      atomic.Uint64
	invalidGeometry atomic.Uint64
	ignored         atomic.Uint64
	undelivered     atomic.Uint64
}

// New creates a channel that rejects pose frames shorter than minLandmarks.
func New(dispatcher Dispatcher, minLandmarks int) *Channel {
	return &Channel{
		dispatcher:   dispatcher,
		minLandmarks: minLandmarks,
	}
}

// OnPose registers the handler for accepted landmark frames.
// Handlers must be registered before messages start flowing.
func (c *Channel) OnPose(fn func(pose.Frame)) {
	c.onPose = fn
}

// OnResize registers the handler for accepted window geometry.
func (c *Channel) OnResize(fn func(width, height int)) {
	c.onResize = fn
}

// OnMessage handles one text message. Bad messages are logged and dropped.
func (c *Channel) OnMessage(raw string) {
	slog.Debug("message received", "size", len(raw), "payload", raw)
	c.record(c.handle(protocol.DecodeJSON([]byte(raw))))
}

// OnBinary handles one msgpack-encoded message.
func (c *Channel) OnBinary(raw []byte) {
	slog.Debug("binary message received", "size", len(raw))
	c.record(c.handle(protocol.DecodeMsgpack(raw)))
}

// Stats returns a snapshot of the message counters.
func (c *Channel) Stats() Stats {
	return Stats{
		Poses:           c.poses.Load(),
		Resizes:         c.resizes.Load(),
		Malformed:       c.malformed.Load(),
		Incomplete:      c.incomplete.Load(),
		InvalidGeometry: c.invalidGeometry.Load(),
		Ignored:         c.ignored.Load(),
		Undelivered:     c.undelivered.Load(),
	}
}

func (c *Channel) handle(msg protocol.Inbound, err error) error {
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case protocol.PoseData:
		if m.Landmarks.Len() < c.minLandmarks {
			return protocol.NewDropError("accept pose data", protocol.ErrIncompleteFrame,
				fmt.Sprintf("got %d landmarks, need %d", m.Landmarks.Len(), c.minLandmarks))
		}
		frame := m.Landmarks
		if !c.post(func() {
			if c.onPose != nil {
				c.onPose(frame)
			}
		}) {
			return errNotDispatched
		}
		c.poses.Add(1)

	case protocol.ResizeWindow:
		if !(geometry.Viewport{Width: m.Width, Height: m.Height}).Valid() {
			return protocol.NewDropError("accept resize", protocol.ErrInvalidGeometry,
				fmt.Sprintf("%dx%d, sides must be 1..%d", m.Width, m.Height, geometry.MaxSide))
		}
		width, height := m.Width, m.Height
		if !c.post(func() {
			if c.onResize != nil {
				c.onResize(width, height)
			}
		}) {
			return errNotDispatched
		}
		c.resizes.Add(1)

	default:
		c.ignored.Add(1)
		slog.Debug("ignoring message", "type", msg.Kind())
	}

	return nil
}

func (c *Channel) post(fn func()) bool {
	return c.dispatcher.Post(fn)
}

func (c *Channel) record(err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, protocol.ErrMalformedMessage):
		c.malformed.Add(1)
	case errors.Is(err, protocol.ErrIncompleteFrame):
		c.incomplete.Add(1)
	case errors.Is(err, protocol.ErrInvalidGeometry):
		c.invalidGeometry.Add(1)
	default:
		c.undelivered.Add(1)
	}
	slog.Debug("message dropped", "error", err)
}
