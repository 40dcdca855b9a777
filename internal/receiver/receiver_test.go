package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ornithopter83/selftrack/internal/config"
	"github.com/ornithopter83/selftrack/internal/pose"
	"github.com/ornithopter83/selftrack/internal/protocol"
)

type recordingSink struct {
	mu       sync.Mutex
	overlays [][]byte
	geometry []*protocol.Geometry
}

func (s *recordingSink) OverlayChanged(png []byte) {
	s.mu.Lock()
	s.overlays = append(s.overlays, png)
	s.mu.Unlock()
}

func (s *recordingSink) GeometryChanged(g *protocol.Geometry) {
	s.mu.Lock()
	s.geometry = append(s.geometry, g)
	s.mu.Unlock()
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overlays), len(s.geometry)
}

type recordingExporter struct {
	mu     sync.Mutex
	frames []pose.Frame
}

func (e *recordingExporter) Offer(frame pose.Frame) {
	e.mu.Lock()
	e.frames = append(e.frames, frame)
	e.mu.Unlock()
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:  "https://example.github.io/Self-Tracking/",
		Mirror:   true,
		Display:  image.Pt(1920, 1080),
		Header:   40,
		Viewport: image.Pt(640, 480),
		Markers:  pose.DefaultMarkers(),
	}
}

func startReceiver(t *testing.T) (*Receiver, *recordingSink, *recordingExporter) {
	t.Helper()

	r := New(testConfig(), "ab12cd34")
	sink := &recordingSink{}
	exp := &recordingExporter{}
	r.AddSink(sink)
	r.SetExporter(exp)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		r.Close()
	})
	return r, sink, exp
}

func poseJSON(t *testing.T, frame pose.Frame) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"type": "POSE_DATA", "landmarks": frame})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// upperBody returns a 33-landmark frame with nose and shoulders visible.
func upperBody(nose, left, right [2]float64) pose.Frame {
	frame := make(pose.Frame, 33)
	frame[pose.IndexNose] = pose.Landmark{X: nose[0], Y: nose[1], Visibility: 0.9}
	frame[pose.IndexLeftShoulder] = pose.Landmark{X: left[0], Y: left[1], Visibility: 0.9}
	frame[pose.IndexRightShoulder] = pose.Landmark{X: right[0], Y: right[1], Visibility: 0.9}
	return frame
}

func snapshot(t *testing.T, r *Receiver) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return s
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewReceiver(t *testing.T) {
	r := New(testConfig(), "ab12cd34")
	defer r.Close()

	urls := r.URLs()
	if urls.Sender != "https://example.github.io/Self-Tracking/?room=ab12cd34" {
		t.Errorf("Sender = %q", urls.Sender)
	}
	if urls.Receiver != urls.Sender+"&mode=pc" {
		t.Errorf("Receiver = %q", urls.Receiver)
	}

	g := r.Geometry()
	if g.Width != 640 || g.Height != 480 || g.Header != 40 {
		t.Errorf("initial geometry = %+v", g)
	}
}

func TestPoseIsDrawn(t *testing.T) {
	r, sink, exp := startReceiver(t)

	frame := upperBody([2]float64{0.5, 0.1}, [2]float64{0.75, 0.5}, [2]float64{0.25, 0.5})
	r.Channel().OnMessage(poseJSON(t, frame))

	s := snapshot(t, r)
	if s.Frames != 1 {
		t.Fatalf("Frames = %d, want 1", s.Frames)
	}
	if len(s.Visible) != 3 {
		t.Fatalf("drew %d markers, want 3", len(s.Visible))
	}

	want := map[string][2]float64{
		"head":           {320, 48},
		"left_shoulder":  {160, 240},
		"right_shoulder": {480, 240},
	}
	for _, p := range s.Visible {
		w := want[p.Marker.Name]
		if !near(p.X, w[0]) || !near(p.Y, w[1]) {
			t.Errorf("%s at (%v,%v), want (%v,%v)", p.Marker.Name, p.X, p.Y, w[0], w[1])
		}
	}

	if len(s.Markers) != 3 {
		t.Fatalf("Markers = %d, want 3", len(s.Markers))
	}
	for _, m := range s.Markers {
		if !m.Drawn || m.Visibility != 0.9 {
			t.Errorf("marker %s = %+v", m.Marker.Name, m)
		}
	}

	exp.mu.Lock()
	exported := len(exp.frames)
	exp.mu.Unlock()
	if exported != 1 {
		t.Errorf("exported %d frames, want 1", exported)
	}

	img, err := png.Decode(bytes.NewReader(r.Overlay()))
	if err != nil {
		t.Fatalf("decode overlay: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("overlay is %dx%d, want 640x480", b.Dx(), b.Dy())
	}
	if _, _, _, a := img.At(320, 48).RGBA(); a == 0 {
		t.Error("head marker not painted in the overlay")
	}

	sink.mu.Lock()
	last := sink.overlays[len(sink.overlays)-1]
	sink.mu.Unlock()
	if !bytes.Equal(last, r.Overlay()) {
		t.Error("sink did not get the latest overlay")
	}
}

func TestLatestFrameWins(t *testing.T) {
	r, _, _ := startReceiver(t)

	for i := 1; i <= 5; i++ {
		x := float64(i) / 10
		r.Channel().OnMessage(poseJSON(t, upperBody([2]float64{x, 0.1}, [2]float64{0.75, 0.5}, [2]float64{0.25, 0.5})))
	}

	s := snapshot(t, r)
	if s.Frames != 5 {
		t.Fatalf("Frames = %d, want 5", s.Frames)
	}
	for _, p := range s.Visible {
		if p.Marker.Name == "head" && !near(p.X, (1-0.5)*640) {
			t.Errorf("head drawn at x=%v, want the last frame's position %v", p.X, (1-0.5)*640)
		}
	}
}

func TestShortFrameKeepsPrevious(t *testing.T) {
	r, _, _ := startReceiver(t)

	good := upperBody([2]float64{0.5, 0.1}, [2]float64{0.75, 0.5}, [2]float64{0.25, 0.5})
	r.Channel().OnMessage(poseJSON(t, good))
	r.Channel().OnMessage(poseJSON(t, make(pose.Frame, 5)))

	s := snapshot(t, r)
	if s.Frames != 1 {
		t.Errorf("Frames = %d, want the short frame discarded", s.Frames)
	}
	if s.Channel.Incomplete != 1 {
		t.Errorf("Incomplete = %d, want 1", s.Channel.Incomplete)
	}
	if len(s.Visible) != 3 {
		t.Errorf("drew %d markers, want the previous frame still shown", len(s.Visible))
	}
}

func TestResizeThenRender(t *testing.T) {
	r, sink, _ := startReceiver(t)

	r.Channel().OnMessage(`{"type":"RESIZE_WINDOW","width":800,"height":600}`)
	r.Channel().OnMessage(poseJSON(t, upperBody([2]float64{0.5, 0.1}, [2]float64{0.75, 0.5}, [2]float64{0.25, 0.5})))

	s := snapshot(t, r)
	if s.Viewport.Width != 800 || s.Viewport.Height != 600 {
		t.Fatalf("Viewport = %v, want 800x600", s.Viewport)
	}
	if s.Client != image.Pt(800, 640) {
		t.Errorf("Client = %v, want (800,640)", s.Client)
	}
	if s.Position != image.Pt(560, 220) {
		t.Errorf("Position = %v, want (560,220)", s.Position)
	}

	for _, p := range s.Visible {
		if p.Marker.Name == "head" && (!near(p.X, 400) || !near(p.Y, 60)) {
			t.Errorf("head at (%v,%v), want (400,60) in the resized viewport", p.X, p.Y)
		}
	}

	g := r.Geometry()
	if g.Width != 800 || g.Height != 600 {
		t.Errorf("Geometry() = %+v", g)
	}
	if _, geos := sink.counts(); geos != 1 {
		t.Errorf("sink saw %d geometry changes, want 1", geos)
	}

	img, err := png.Decode(bytes.NewReader(r.Overlay()))
	if err != nil {
		t.Fatalf("decode overlay: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("overlay is %dx%d, want 800x600", b.Dx(), b.Dy())
	}
}

func TestRepeatedResizeIsQuiet(t *testing.T) {
	r, sink, _ := startReceiver(t)

	for i := 0; i < 3; i++ {
		r.Channel().OnMessage(`{"type":"RESIZE_WINDOW","width":1280,"height":720}`)
	}
	r.Channel().OnMessage(fmt.Sprintf(`{"type":"RESIZE_WINDOW","width":%d,"height":%d}`, 0, 720))
	snapshot(t, r)

	if _, geos := sink.counts(); geos != 1 {
		t.Errorf("sink saw %d geometry changes, want 1", geos)
	}
	if s := snapshot(t, r); s.Channel.InvalidGeometry != 1 {
		t.Errorf("InvalidGeometry = %d, want 1", s.Channel.InvalidGeometry)
	}
}

func TestClose(t *testing.T) {
	r, _, _ := startReceiver(t)
	r.Close()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}

	if _, err := r.Snapshot(context.Background()); err == nil {
		t.Error("Snapshot after Close succeeded")
	}
}

func TestBurstIsPaintedOnce(t *testing.T) {
	r, sink, exp := startReceiver(t)

	started := make(chan struct{})
	release := make(chan struct{})
	r.loop.Post(func() {
		close(started)
		<-release
	})
	<-started
	before, _ := sink.counts()

	for i := 1; i <= 5; i++ {
		x := float64(i) / 10
		r.Channel().OnMessage(poseJSON(t, upperBody([2]float64{x, 0.1}, [2]float64{0.75, 0.5}, [2]float64{0.25, 0.5})))
	}
	close(release)

	s := snapshot(t, r)
	if s.Frames != 5 {
		t.Fatalf("Frames = %d, want 5", s.Frames)
	}
	if after, _ := sink.counts(); after-before != 1 {
		t.Errorf("burst of 5 frames painted %d overlays, want 1", after-before)
	}

	exp.mu.Lock()
	exported := len(exp.frames)
	exp.mu.Unlock()
	if exported != 5 {
		t.Errorf("exported %d frames, want every accepted frame", exported)
	}

	for _, p := range s.Visible {
		if p.Marker.Name == "head" && !near(p.X, (1-0.5)*640) {
			t.Errorf("head drawn at x=%v, want the last frame's position", p.X)
		}
	}
}

func TestOversizedResizeIgnored(t *testing.T) {
	r, sink, _ := startReceiver(t)

	r.Channel().OnMessage(`{"type":"RESIZE_WINDOW","width":1073741824,"height":1073741824}`)
	r.Channel().OnMessage(`{"type":"RESIZE_WINDOW","width":50000,"height":50000}`)

	s := snapshot(t, r)
	if s.Viewport.Width != 640 || s.Viewport.Height != 480 {
		t.Errorf("Viewport = %v, want 640x480", s.Viewport)
	}
	if s.Client != image.Pt(640, 520) {
		t.Errorf("Client = %v, want (640,520)", s.Client)
	}
	if s.Channel.InvalidGeometry != 2 {
		t.Errorf("InvalidGeometry = %d, want 2", s.Channel.InvalidGeometry)
	}
	if _, geos := sink.counts(); geos != 0 {
		t.Errorf("sink saw %d geometry changes, want 0", geos)
	}

	var video, overlay image.Rectangle
	if err := r.loop.Invoke(context.Background(), func() {
		video, overlay = r.window.Video.Bounds(), r.window.Overlay.Bounds()
	}); err != nil {
		t.Fatal(err)
	}
	if video != overlay {
		t.Errorf("video bounds %v != overlay bounds %v", video, overlay)
	}
}
