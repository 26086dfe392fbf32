package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/metrics"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/shared"
)

// Options configures a [Store] or a [Worker].
type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Backend BackendOptions
}

// Callback receives the model for one get query.
type Callback func(*models.Model)

// Store is the client-side façade of the model store.
type Store struct {
	endpoint *Endpoint
	logger   *log.Logger
	metrics  *metrics.Metrics

	lastID atomic.Uint64

	mu      sync.Mutex
	pending map[string]Callback
	closed  bool

	cancel  context.CancelFunc
	done    chan struct{}
	cleanup func() error
}

// New creates a façade over the client side of a bus and starts its response dispatcher.
func New(endpoint *Endpoint, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		endpoint: endpoint,
		logger:   shared.WithLogger(logger, "component", "store"),
		metrics:  opts.Metrics,
		pending:  make(map[string]Callback),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go s.dispatch(ctx)
	return s
}

// Open wires a complete store over the SQLite database at path: a bus, a worker goroutine owning the
// backend and the façade. Closing the returned store stops the worker and closes the database.
func Open(ctx context.Context, path string, opts Options) *Store {
	client, server := NewBus()
	backend := NewBackend(path, BackendOptions{
		MaxOpenConns: opts.Backend.MaxOpenConns,
		MaxIdleConns: opts.Backend.MaxIdleConns,
		Logger:       opts.Logger,
	})
	worker := NewWorker(server, backend, opts)

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx)
	}()

	s := New(client, opts)
	s.cleanup = func() error {
		err := <-workerDone
		if closeErr := backend.Close(); closeErr != nil {
			return closeErr
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return s
}

// nextID returns a fresh correlation id. Ids start at 1, increase monotonically and are never reused.
func (s *Store) nextID() string {
	return strconv.FormatUint(s.lastID.Add(1), 10)
}

func (s *Store) register(cb Callback) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", shared.ErrStoreClosed
	}

	id := s.nextID()
	s.pending[id] = cb
	s.metrics.SetPendingQueries(len(s.pending))
	return id, nil
}

// forget drops a pending callback without invoking it.
func (s *Store) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	s.metrics.SetPendingQueries(len(s.pending))
}

// resolve removes and returns the callback for id.
func (s *Store) resolve(id string) (Callback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
		s.metrics.SetPendingQueries(len(s.pending))
	}
	return cb, ok
}

// Get requests the full model and returns immediately. cb runs once, on the dispatcher goroutine, when the
// matching response arrives. If no response ever arrives cb is never called.
func (s *Store) Get(cb Callback) error {
	_, err := s.get(cb)
	return err
}

func (s *Store) get(cb Callback) (string, error) {
	if cb == nil {
		return "", fmt.Errorf("%w: callback is required", shared.ErrMissingArgument)
	}

	id, err := s.register(cb)
	if err != nil {
		return "", err
	}

	if err := s.endpoint.Post(Message{Type: MessageGet, QueryID: id}); err != nil {
		s.forget(id)
		return "", err
	}
	return id, nil
}

// Query is the blocking form of [Store.Get]. When ctx is done first the pending callback is forgotten
// and [shared.ErrTimeout] is returned; a late response is then ignored.
func (s *Store) Query(ctx context.Context) (*models.Model, error) {
	result := make(chan *models.Model, 1)

	id, err := s.get(func(m *models.Model) { result <- m })
	if err != nil {
		return nil, err
	}

	select {
	case model := <-result:
		return model, nil
	case <-ctx.Done():
		s.forget(id)
		return nil, fmt.Errorf("%w: get query %s: %v", shared.ErrTimeout, id, ctx.Err())
	}
}

// Set writes data into table without waiting. Singleton tables take any JSON object; collection tables
// take a slice of feeds or items and are upserted by URL.
func (s *Store) Set(table models.Table, data any) error {
	if _, err := models.ParseTable(string(table)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUnknownTable, err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %v", shared.ErrInvalidInput, table, err)
	}

	return s.post(Message{Type: MessageSet, Name: table, Data: raw})
}

// DeleteFeed removes feed and every item that references it, without waiting.
func (s *Store) DeleteFeed(feed models.Feed) error {
	if err := feed.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	raw, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("%w: failed to encode feed: %v", shared.ErrInvalidInput, err)
	}

	return s.post(Message{Type: MessageDeleteFeed, Data: raw})
}

// Destroy empties every table without waiting.
func (s *Store) Destroy() error {
	return s.post(Message{Type: MessageDestroy})
}

func (s *Store) post(msg Message) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return shared.ErrStoreClosed
	}
	return s.endpoint.Post(msg)
}

// Pending reports how many get queries are waiting for a response.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops the dispatcher and closes the bus. Pending callbacks are dropped without being called.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = make(map[string]Callback)
	s.metrics.SetPendingQueries(0)
	s.mu.Unlock()

	s.cancel()
	s.endpoint.Close()
	<-s.done

	if s.cleanup != nil {
		return s.cleanup()
	}
	return nil
}

// dispatch resolves responses by correlation id until the bus closes.
func (s *Store) dispatch(ctx context.Context) {
	defer close(s.done)

	for {
		msg, err := s.endpoint.Receive(ctx)
		if errors.Is(err, shared.ErrBusClosed) || ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("discarding undecodable response", "error", err)
			continue
		}

		if msg.Type != MessageGet {
			s.logger.Warn("unexpected response type", "type", msg.Type)
			continue
		}

		cb, ok := s.resolve(msg.QueryID)
		if !ok {
			s.logger.Debug("ignoring response for unknown query", "query_id", msg.QueryID)
			continue
		}

		model := msg.Model
		if model == nil {
			model = &models.Model{}
		}
		cb(model)
	}
}
