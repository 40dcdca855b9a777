package pose

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Defaults for the overlay markers.
const (
	DefaultConfidence = 0.5
	DefaultRadius     = 10.0
)

// Marker is one landmark of interest drawn on the overlay.
type Marker struct {
	Index int
	Name  string
	Label string
	Color color.RGBA
}

// MarkerSet is the configured subset of landmarks the overlay draws.
type MarkerSet struct {
	Markers []Marker

	// Confidence is the minimum visibility a landmark needs to be drawn.
	Confidence float64

	// Radius of the marker disc in pixels.
	Radius float64
}

// DefaultMarkers returns the head and shoulder markers.
func DefaultMarkers() MarkerSet {
	return MarkerSet{
		Markers: []Marker{
			{Index: IndexNose, Name: "head", Label: "Head", Color: color.RGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}},
			{Index: IndexLeftShoulder, Name: "left_shoulder", Label: "L", Color: color.RGBA{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}},
			{Index: IndexRightShoulder, Name: "right_shoulder", Label: "R", Color: color.RGBA{R: 0x22, G: 0xD3, B: 0xEE, A: 0xFF}},
		},
		Confidence: DefaultConfidence,
		Radius:     DefaultRadius,
	}
}

// MinLandmarks is the shortest frame that holds every configured marker.
func (s MarkerSet) MinLandmarks() int {
	n := 0
	for _, m := range s.Markers {
		if m.Index+1 > n {
			n = m.Index + 1
		}
	}
	return n
}

// Validate checks the set for negative indices, duplicates and out of range thresholds.
func (s MarkerSet) Validate() error {
	if len(s.Markers) == 0 {
		return fmt.Errorf("marker set is empty")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", s.Confidence)
	}
	if s.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %.1f", s.Radius)
	}

	seen := make(map[int]string, len(s.Markers))
	for _, m := range s.Markers {
		if m.Index < 0 {
			return fmt.Errorf("marker %q has negative index %d", m.Name, m.Index)
		}
		if other, ok := seen[m.Index]; ok {
			return fmt.Errorf("markers %q and %q share index %d", other, m.Name, m.Index)
		}
		seen[m.Index] = m.Name
	}
	return nil
}

// ParseColor converts a hex color such as "#22d3ee" to an opaque RGBA.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}, nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
