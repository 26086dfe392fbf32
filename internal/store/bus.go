package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/desertthunder/podplay/internal/shared"
)

// mailbox is an unbounded FIFO of encoded messages.
type mailbox struct {
	mu     sync.Mutex
	queue  [][]byte
	ready  chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) push(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return shared.ErrBusClosed
	}
	m.queue = append(m.queue, data)

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until a message is queued, the mailbox is closed or ctx is done.
// Messages queued before close are still delivered.
func (m *mailbox) pop(ctx context.Context) ([]byte, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			data := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return data, nil
		}
		if m.closed {
			m.mu.Unlock()
			return nil, shared.ErrBusClosed
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.ready:
		}
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.ready)
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Endpoint is one side of a bus created by [NewBus].
type Endpoint struct {
	in  *mailbox
	out *mailbox
}

// NewBus creates a connected pair of endpoints. Whatever one side posts, the other receives in the same order.
func NewBus() (client, worker *Endpoint) {
	up, down := newMailbox(), newMailbox()
	return &Endpoint{in: down, out: up}, &Endpoint{in: up, out: down}
}

// Post encodes msg and queues it for the other side. It never blocks.
func (e *Endpoint) Post(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	return e.out.push(data)
}

// Receive blocks until the next message arrives. It returns [shared.ErrBusClosed] once the bus is closed
// and drained, or the context error when ctx is done first.
func (e *Endpoint) Receive(ctx context.Context) (Message, error) {
	data, err := e.in.pop(ctx)
	if err != nil {
		return Message{}, err
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}

// Queued reports how many messages are waiting to be received on this side.
func (e *Endpoint) Queued() int {
	return e.in.len()
}

// Close shuts both directions. Closing either endpoint closes the bus.
func (e *Endpoint) Close() {
	e.in.close()
	e.out.close()
}
