package graph

import "sync"

// DefaultStreamBuffer is the channel capacity used by NewStream when size <= 0.
const DefaultStreamBuffer = 64

// Stream delivers events through a buffered channel so a renderer can consume
// them on its own goroutine.
type Stream struct {
	ch     chan Event
	once   sync.Once
	mu     sync.RWMutex
	closed bool
	block  bool
}

// NewStream creates a Stream with the given buffer size.
func NewStream(size int) *Stream {
	if size <= 0 {
		size = DefaultStreamBuffer
	}
	return &Stream{ch: make(chan Event, size)}
}

// NewBlockingStream creates a Stream whose Emit waits for buffer space
// instead of dropping. The subscriber must drain the channel until Close.
func NewBlockingStream(size int) *Stream {
	s := NewStream(size)
	s.block = true
	return s
}

// Emit sends an event. A full buffer drops the event unless the stream is
// blocking. Events emitted after Close are dropped.
func (s *Stream) Emit(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if s.block {
		s.ch <- e
		return
	}
	select {
	case s.ch <- e:
	default:
	}
}

// Subscribe returns the read side of the stream.
func (s *Stream) Subscribe() <-chan Event {
	return s.ch
}

// Close closes the channel. Safe to call more than once.
func (s *Stream) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
