package jobs

import (
	"context"
	"io"
	"sync"

	"github.com/sells-group/menu-scout/internal/model"
)

// Stream is an append-only, unbounded event log for one job. Any number of
// producers may append; every subscription replays from the first event.
type Stream struct {
	mu     sync.Mutex
	events []model.Event
	closed bool
	notify chan struct{}
}

func newStream() *Stream {
	return &Stream{notify: make(chan struct{})}
}

// Append adds ev. Events appended after Close are dropped.
func (s *Stream) Append(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events = append(s.events, ev)
	s.wake()
}

// Close appends the complete sentinel and seals the stream.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events = append(s.events, model.CompleteEvent())
	s.closed = true
	s.wake()
}

// wake releases blocked readers. Callers hold s.mu.
func (s *Stream) wake() {
	close(s.notify)
	s.notify = make(chan struct{})
}

// Len returns the number of events appended so far.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Subscribe returns a reader positioned at the first event.
func (s *Stream) Subscribe() *Subscription {
	return &Subscription{stream: s}
}

// Subscription reads a Stream in append order. It is not safe for concurrent use.
type Subscription struct {
	stream *Stream
	pos    int
}

// Next blocks until the next event is available. After the complete sentinel
// has been returned it returns io.EOF.
func (sub *Subscription) Next(ctx context.Context) (model.Event, error) {
	s := sub.stream
	for {
		s.mu.Lock()
		if sub.pos < len(s.events) {
			ev := s.events[sub.pos]
			sub.pos++
			s.mu.Unlock()
			return ev, nil
		}
		if s.closed {
			s.mu.Unlock()
			return model.Event{}, io.EOF
		}
		wait := s.notify
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return model.Event{}, ctx.Err()
		case <-wait:
		}
	}
}
