package overlay

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ornithopter83/selftrack/internal/geometry"
	"github.com/ornithopter83/selftrack/internal/pose"
)

// kappa places cubic Bézier control points so four curves approximate a circle.
const kappa = 0.5522847498

const labelGap = 4

// FrameSource provides the frame to draw.
type FrameSource interface {
	Current() (pose.Frame, bool)
}

// Placement is one marker drawn by Render, in overlay pixel coordinates.
type Placement struct {
	Marker pose.Marker
	X, Y   float64
}

// Renderer paints the configured markers onto an overlay canvas.
type Renderer struct {
	markers pose.MarkerSet
	mirror  bool
	face    font.Face
	raster  *vector.Rasterizer
}

// NewRenderer creates a renderer for markers. With mirror set the x axis is
// flipped so the overlay matches a selfie-style camera.
func NewRenderer(markers pose.MarkerSet, mirror bool) *Renderer {
	return &Renderer{
		markers: markers,
		mirror:  mirror,
		face:    basicfont.Face7x13,
		raster:  vector.NewRasterizer(0, 0),
	}
}

// Markers returns the configured marker set.
func (r *Renderer) Markers() pose.MarkerSet {
	return r.markers
}

// Mirror reports whether the x axis is flipped.
func (r *Renderer) Mirror() bool {
	return r.mirror
}

// Project converts a normalized landmark to viewport pixels.
func (r *Renderer) Project(l pose.Landmark, vp geometry.Viewport) (x, y float64) {
	nx := l.X
	if r.mirror {
		nx = 1 - nx
	}
	return nx * float64(vp.Width), l.Y * float64(vp.Height)
}

// Render clears dst and draws every visible marker of the current frame.
// Nothing is drawn before the first frame or when the frame is too short
// for the marker set. Markers whose disc would fall entirely outside dst
// are skipped.
func (r *Renderer) Render(dst draw.Image, src FrameSource, vp geometry.Viewport) []Placement {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	frame, ok := src.Current()
	if !ok || frame.Len() < r.markers.MinLandmarks() || !vp.Valid() {
		return nil
	}

	var placed []Placement
	for _, m := range r.markers.Markers {
		l, ok := frame.At(m.Index)
		if !ok || l.Visibility < r.markers.Confidence {
			continue
		}

		x, y := r.Project(l, vp)
		if !r.onCanvas(dst.Bounds(), x, y) {
			continue
		}
		r.disc(dst, m, x, y)
		r.label(dst, m, x, y)
		placed = append(placed, Placement{Marker: m, X: x, Y: y})
	}
	return placed
}

// onCanvas reports whether a disc centered at (x, y) overlaps b.
func (r *Renderer) onCanvas(b image.Rectangle, x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	rad := r.markers.Radius
	return x > float64(b.Min.X)-rad && x < float64(b.Max.X)+rad &&
		y > float64(b.Min.Y)-rad && y < float64(b.Max.Y)+rad
}

func (r *Renderer) disc(dst draw.Image, m pose.Marker, x, y float64) {
	b := dst.Bounds()
	r.raster.Reset(b.Dx(), b.Dy())

	cx, cy := float32(x), float32(y)
	rad := float32(r.markers.Radius)
	k := float32(kappa) * rad

	z := r.raster
	z.MoveTo(cx+rad, cy)
	z.CubeTo(cx+rad, cy+k, cx+k, cy+rad, cx, cy+rad)
	z.CubeTo(cx-k, cy+rad, cx-rad, cy+k, cx-rad, cy)
	z.CubeTo(cx-rad, cy-k, cx-k, cy-rad, cx, cy-rad)
	z.CubeTo(cx+k, cy-rad, cx+rad, cy-k, cx+rad, cy)
	z.ClosePath()

	z.Draw(dst, b, image.NewUniform(m.Color), image.Point{})
}

func (r *Renderer) label(dst draw.Image, m pose.Marker, x, y float64) {
	if m.Label == "" {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(m.Color),
		Face: r.face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(x + r.markers.Radius + labelGap)),
			Y: fixed.I(int(y + float64(r.face.Metrics().Ascent.Ceil())/2)),
		},
	}
	d.DrawString(m.Label)
}
