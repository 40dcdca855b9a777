package pose

import "time"

// Store caches the most recently published frame.
//
// A Store belongs to the receiver's event loop and is not safe for use
// from other goroutines.
type Store struct {
	frame   Frame
	ok      bool
	updated time.Time
	count   uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current frame. The store takes ownership of frame.
func (s *Store) Publish(frame Frame) {
	s.frame = frame
	s.ok = true
	s.updated = time.Now()
	s.count++
}

// Current returns the latest frame, or false before the first publish.
func (s *Store) Current() (Frame, bool) {
	return s.frame, s.ok
}

// Updated reports when the current frame was published.
func (s *Store) Updated() time.Time {
	return s.updated
}

// Published returns the number of frames published so far.
func (s *Store) Published() uint64 {
	return s.count
}
