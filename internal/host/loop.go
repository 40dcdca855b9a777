package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrLoopClosed is returned when work is posted after the loop stopped.
var ErrLoopClosed = errors.New("event loop closed")

// Loop is the receiver's UI thread. Window, surface and landmark state
// belong to it; other goroutines hand work over with Post or Invoke.
// Posted functions run one at a time in the order they were posted.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
	idle  func()
}

// NewLoop creates a loop with room for queueSize pending tasks.
func NewLoop(queueSize int) *Loop {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Loop{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// OnIdle registers fn to run on the loop whenever a task finishes and no
// other task is queued. Call before Run.
func (l *Loop) OnIdle(fn func()) {
	l.idle = fn
}

// Run executes posted functions until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			l.run(fn)
			if l.idle != nil && len(l.tasks) == 0 {
				l.run(l.idle)
			}

		case <-ctx.Done():
			l.Close()
			return ctx.Err()

		case <-l.done:
			return nil
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event loop task panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn to run on the loop. It blocks while the queue is full and
// reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Invoke runs fn on the loop and waits for it to finish.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Close stops the loop. Pending tasks are discarded.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
	})
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
