package pose

import (
	"image/color"
	"testing"
)

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore()
	if _, ok := s.Current(); ok {
		t.Fatal("new store should be empty")
	}

	first := make(Frame, 13)
	first[0] = Landmark{X: 0.1, Visibility: 1}
	second := make(Frame, 33)
	second[0] = Landmark{X: 0.9, Visibility: 1}

	s.Publish(first)
	s.Publish(second)

	got, ok := s.Current()
	if !ok {
		t.Fatal("expected a frame after publish")
	}
	if got.Len() != 33 || got[0].X != 0.9 {
		t.Errorf("Current() = %d landmarks, x0=%v; want the second frame", got.Len(), got[0].X)
	}
	if s.Published() != 2 {
		t.Errorf("Published() = %d, want 2", s.Published())
	}
	if s.Updated().IsZero() {
		t.Error("Updated() should be set after publish")
	}
}

func TestFrameAt(t *testing.T) {
	f := Frame{{X: 0.5}}
	if _, ok := f.At(1); ok {
		t.Error("At(1) on a one-landmark frame should report false")
	}
	if _, ok := f.At(-1); ok {
		t.Error("At(-1) should report false")
	}
	if l, ok := f.At(0); !ok || l.X != 0.5 {
		t.Errorf("At(0) = %+v, %v", l, ok)
	}
}

func TestMinLandmarks(t *testing.T) {
	if got := DefaultMarkers().MinLandmarks(); got != 13 {
		t.Errorf("default MinLandmarks() = %d, want 13", got)
	}

	set := DefaultMarkers()
	set.Markers = append(set.Markers, Marker{Index: 24, Name: "right_hip"})
	if got := set.MinLandmarks(); got != 25 {
		t.Errorf("MinLandmarks() with hip = %d, want 25", got)
	}
}

func TestMarkerSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MarkerSet)
		wantErr bool
	}{
		{name: "default", mutate: func(*MarkerSet) {}},
		{name: "empty", mutate: func(s *MarkerSet) { s.Markers = nil }, wantErr: true},
		{name: "duplicate index", mutate: func(s *MarkerSet) { s.Markers[1].Index = 0 }, wantErr: true},
		{name: "negative index", mutate: func(s *MarkerSet) { s.Markers[2].Index = -1 }, wantErr: true},
		{name: "confidence above one", mutate: func(s *MarkerSet) { s.Confidence = 1.5 }, wantErr: true},
		{name: "zero radius", mutate: func(s *MarkerSet) { s.Radius = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := DefaultMarkers()
			tt.mutate(&set)
			err := set.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#22d3ee")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	want := color.RGBA{R: 0x22, G: 0xD3, B: 0xEE, A: 0xFF}
	if c != want {
		t.Errorf("ParseColor = %+v, want %+v", c, want)
	}
	if Hex(c) != "#22d3ee" {
		t.Errorf("Hex = %q", Hex(c))
	}

	if _, err := ParseColor("cyan"); err == nil {
		t.Error("expected error for non-hex color")
	}
}
