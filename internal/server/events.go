package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/podplay/internal/models"
)

// DefaultClientBuffer is the per-client event queue length.
const DefaultClientBuffer = 64

// Broadcaster fans controller events out to server-sent event clients. It implements player.Sink.
//
// Emit never blocks: a client whose queue is full misses the event.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan models.Event]struct{}
	buffer  int
	done    chan struct{}
	closed  bool
	dropped int
}

// NewBroadcaster creates a broadcaster with the given per-client buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Broadcaster{
		clients: make(map[chan models.Event]struct{}),
		buffer:  buffer,
		done:    make(chan struct{}),
	}
}

// Routes returns the HTTP routes this handler serves.
func (b *Broadcaster) Routes() []string {
	return []string{"/events"}
}

// Emit queues event for every connected client.
func (b *Broadcaster) Emit(event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		select {
		case ch <- event:
		default:
			b.dropped++
		}
	}
}

// Subscribe registers a client queue. The returned func unregisters it.
func (b *Broadcaster) Subscribe() (<-chan models.Event, func()) {
	ch := make(chan models.Event, b.buffer)

	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
	}
}

// Clients reports how many clients are connected.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Dropped reports how many deliveries were skipped because a client queue was full.
func (b *Broadcaster) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close ends every open stream.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

// ServeHTTP streams events as text/event-stream until the client goes away or the broadcaster closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-b.done:
			return
		case event := <-events:
			data, err := json.Marshal(eventData(event))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// eventData is the payload carried by each event kind: soundLoaded(bool), playError(url), playEnd(url)
// and updateProgress{progress,duration}.
func eventData(event models.Event) any {
	switch event.Kind {
	case models.SoundLoaded:
		return event.Loaded
	case models.PlayError, models.PlayEnd:
		return event.URL
	default:
		return event.Sample
	}
}
