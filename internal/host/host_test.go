package host

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)
	return loop
}

func TestLoopRunsInOrder(t *testing.T) {
	loop := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !loop.Post(func() { got = append(got, i) }) {
			t.Fatalf("Post(%d) rejected", i)
		}
	}

	var n int
	if err := loop.Invoke(context.Background(), func() { n = len(got) }); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if n != 100 {
		t.Fatalf("ran %d tasks before Invoke, want 100", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoopSurvivesPanic(t *testing.T) {
	loop := startLoop(t)

	loop.Post(func() { panic("boom") })

	ran := false
	if err := loop.Invoke(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Invoke after panic: %v", err)
	}
	if !ran {
		t.Error("task after panic did not run")
	}
}

func TestLoopClosed(t *testing.T) {
	loop := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-stopped:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	if loop.Post(func() {}) {
		t.Error("Post succeeded on a stopped loop")
	}
	if err := loop.Invoke(context.Background(), func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Invoke() = %v, want ErrLoopClosed", err)
	}
}

func TestCanvasReallocatesOnResize(t *testing.T) {
	c := NewCanvas("overlay")
	c.SetBounds(image.Rect(0, 40, 640, 520))
	if got := c.Image().Bounds().Size(); got != image.Pt(640, 480) {
		t.Fatalf("image size = %v, want 640x480", got)
	}

	c.Image().Set(10, 10, color.White)
	c.SetBounds(image.Rect(10, 50, 650, 530))
	if _, _, _, a := c.Image().At(10, 10).RGBA(); a == 0 {
		t.Error("moving without resizing should keep the buffer")
	}

	c.Clear()
	if _, _, _, a := c.Image().At(10, 10).RGBA(); a != 0 {
		t.Error("Clear() left an opaque pixel")
	}

	c.SetBounds(image.Rect(0, 40, 800, 640))
	if got := c.Image().Bounds().Size(); got != image.Pt(800, 600) {
		t.Errorf("image size after resize = %v, want 800x600", got)
	}
}

func TestWindowCenter(t *testing.T) {
	w := NewWindow(image.Pt(1920, 1080), 40)
	w.SetClientSize(image.Pt(800, 640))
	w.Center()
	if got := w.Position(); got != image.Pt(560, 220) {
		t.Errorf("Position() = %v, want (560,220)", got)
	}

	w.SetClientSize(image.Pt(4000, 3000))
	w.Center()
	if got := w.Position(); got != image.Pt(0, 0) {
		t.Errorf("oversized window Position() = %v, want (0,0)", got)
	}
}

func TestLoopIdleAfterQueueDrains(t *testing.T) {
	loop := NewLoop(16)

	var (
		mu  sync.Mutex
		log []string
	)
	record := func(s string) {
		mu.Lock()
		log = append(log, s)
		mu.Unlock()
	}

	idled := make(chan struct{}, 1)
	loop.OnIdle(func() {
		record("idle")
		select {
		case idled <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	loop.Post(func() {
		close(started)
		<-release
		record("blocker")
	})
	<-started
	for _, name := range []string{"a", "b", "c"} {
		name := name
		loop.Post(func() { record(name) })
	}
	close(release)

	select {
	case <-idled:
	case <-time.After(2 * time.Second):
		t.Fatal("idle hook never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"blocker", "a", "b", "c", "idle"}
	if len(log) < len(want) {
		t.Fatalf("log = %v, want prefix %v", log, want)
	}
	for i, w := range want {
		if log[i] != w {
			t.Fatalf("log = %v, want prefix %v", log, want)
		}
	}
}
