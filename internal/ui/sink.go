package ui

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/podplay/internal/models"
)

// DefaultSinkBuffer is how many events may queue before progress samples are dropped.
const DefaultSinkBuffer = 256

// Sink queues controller events for the program. It implements player.Sink.
//
// Emit never blocks. Once the queue holds the buffer length, further progress samples are dropped;
// soundLoaded, playEnd and playError are always queued.
type Sink struct {
	mu      sync.Mutex
	queue   []models.Event
	limit   int
	ready   chan struct{}
	dropped atomic.Int64
}

// NewSink creates a [Sink] with the given queue length.
func NewSink(buffer int) *Sink {
	if buffer <= 0 {
		buffer = DefaultSinkBuffer
	}
	return &Sink{limit: buffer, ready: make(chan struct{}, 1)}
}

func (s *Sink) Emit(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Kind == models.UpdateProgress && len(s.queue) >= s.limit {
		s.dropped.Add(1)
		return
	}
	s.queue = append(s.queue, event)

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next returns the oldest queued event, waiting until one arrives or ctx is done.
// Queued events are still returned after ctx is done.
func (s *Sink) Next(ctx context.Context) (models.Event, bool) {
	for {
		if event, ok := s.pop(); ok {
			return event, true
		}

		select {
		case <-ctx.Done():
			return models.Event{}, false
		case <-s.ready:
		}
	}
}

func (s *Sink) pop() (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return models.Event{}, false
	}
	event := s.queue[0]
	s.queue = s.queue[1:]
	return event, true
}

// Len reports how many events are queued.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped reports how many progress samples were discarded.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}
