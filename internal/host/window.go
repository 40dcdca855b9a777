package host

import (
	"image"
	"image/draw"
)

// Surface is a child area of the window positioned in client coordinates.
type Surface struct {
	name   string
	bounds image.Rectangle
}

func NewSurface(name string) *Surface {
	return &Surface{name: name}
}

func (s *Surface) Name() string {
	return s.name
}

func (s *Surface) Bounds() image.Rectangle {
	return s.bounds
}

func (s *Surface) SetBounds(r image.Rectangle) {
	s.bounds = r.Canon()
}

// Canvas is a transparent drawing surface. Its pixel buffer always matches
// the size of its bounds.
type Canvas struct {
	Surface
	img *image.RGBA
}

func NewCanvas(name string) *Canvas {
	return &Canvas{
		Surface: Surface{name: name},
		img:     image.NewRGBA(image.Rect(0, 0, 0, 0)),
	}
}

// SetBounds moves the canvas and reallocates its buffer when the size changes.
func (c *Canvas) SetBounds(r image.Rectangle) {
	r = r.Canon()
	if r.Size() != c.bounds.Size() {
		c.img = image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	}
	c.bounds = r
}

// Image returns the canvas pixels in canvas-local coordinates.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Window models the receiver display: a client area whose top strip is
// reserved for the header, with the video surface and the overlay canvas
// stacked below it.
type Window struct {
	display  image.Point
	header   int
	client   image.Point
	position image.Point

	Video   *Surface
	Overlay *Canvas
}

// NewWindow creates a window on a display of the given size.
func NewWindow(display image.Point, header int) *Window {
	if header < 0 {
		header = 0
	}
	return &Window{
		display: display,
		header:  header,
		Video:   NewSurface("video"),
		Overlay: NewCanvas("overlay"),
	}
}

func (w *Window) Display() image.Point {
	return w.display
}

func (w *Window) Header() int {
	return w.header
}

// ClientSize is the size of the area inside the window frame.
func (w *Window) ClientSize() image.Point {
	return w.client
}

func (w *Window) SetClientSize(size image.Point) {
	w.client = size
}

// Position is the window's top-left corner on the display.
func (w *Window) Position() image.Point {
	return w.position
}

// Center places the window in the middle of the display. A window larger
// than the display is pinned to the top-left corner.
func (w *Window) Center() {
	x := (w.display.X - w.client.X) / 2
	y := (w.display.Y - w.client.Y) / 2
	w.position = image.Pt(max(0, x), max(0, y))
}
