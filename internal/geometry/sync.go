package geometry

import (
	"fmt"
	"image"
	"math"

	"github.com/ornithopter83/selftrack/internal/host"
)

// MaxSide is the largest width or height a viewport may have.
const MaxSide = 4096

// Viewport is the pixel size normalized landmark coordinates scale against.
type Viewport struct {
	Width  int
	Height int
}

// Valid reports whether both sides are in 1..MaxSide.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0 && v.Width <= MaxSide && v.Height <= MaxSide
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// Sync keeps the window and its video and overlay surfaces sized to the
// remote video stream. It must only be used from the window's event loop.
type Sync struct {
	window   *host.Window
	viewport Viewport
}

// NewSync creates a Sync for window. A valid initial viewport is applied
// right away.
func NewSync(window *host.Window, initial Viewport) *Sync {
	s := &Sync{window: window}
	s.Apply(initial.Width, initial.Height)
	return s
}

// Viewport returns the current viewport geometry.
func (s *Sync) Viewport() Viewport {
	return s.viewport
}

// Window returns the synchronized window.
func (s *Sync) Window() *host.Window {
	return s.window
}

// Apply resizes the client area to fit a width×height video below the
// header, gives the video and overlay surfaces identical bounds and
// centers the window. It reports whether anything changed; invalid or
// unchanged geometry is a no-op and leaves the window untouched.
func (s *Sync) Apply(width, height int) bool {
	vp := Viewport{Width: width, Height: height}
	if !vp.Valid() || vp == s.viewport {
		return false
	}

	header := s.window.Header()
	if height > math.MaxInt-header {
		return false
	}

	// The overlay allocates its buffer, so it goes first.
	bounds := image.Rect(0, header, width, header+height)
	s.window.Overlay.SetBounds(bounds)
	s.window.Video.SetBounds(bounds)
	s.window.SetClientSize(image.Pt(width, height+header))

	s.window.Center()
	s.viewport = vp
	return true
}
