package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/metrics"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/shared"
)

// Worker serves store messages against a [Backend] it owns exclusively.
type Worker struct {
	endpoint *Endpoint
	backend  *Backend
	logger   *log.Logger
	metrics  *metrics.Metrics
}

// NewWorker creates a worker bound to the worker side of a bus.
func NewWorker(endpoint *Endpoint, backend *Backend, opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Worker{
		endpoint: endpoint,
		backend:  backend,
		logger:   shared.WithLogger(logger, "component", "worker"),
		metrics:  opts.Metrics,
	}
}

// Run opens the backend and then handles messages in receipt order until ctx is done or the bus closes.
//
// If the backend fails to open, Run keeps draining the bus but drops every message, so get queries
// are never answered.
func (w *Worker) Run(ctx context.Context) error {
	openErr := w.backend.Open()
	if openErr != nil {
		w.logger.Error("storage unavailable, dropping all messages", "error", openErr)
	}

	for {
		msg, err := w.endpoint.Receive(ctx)
		if errors.Is(err, shared.ErrBusClosed) {
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			w.logger.Warn("discarding undecodable message", "error", err)
			w.metrics.IncDropped()
			continue
		}

		if openErr != nil {
			w.logger.Warn("dropped message", "type", msg.Type, "query_id", msg.QueryID)
			w.metrics.IncDropped()
			continue
		}

		if err := w.handle(msg); err != nil {
			w.logger.Error("failed to handle message", "type", msg.Type, "error", err)
			w.metrics.IncDropped()
			continue
		}
		w.metrics.IncStoreMessage(string(msg.Type))
	}
}

func (w *Worker) handle(msg Message) error {
	switch msg.Type {
	case MessageGet:
		model, err := w.backend.Load()
		if err != nil {
			return err
		}
		return w.endpoint.Post(Message{Type: MessageGet, QueryID: msg.QueryID, Model: model})
	case MessageSet:
		table, err := models.ParseTable(string(msg.Name))
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrUnknownTable, err)
		}
		return w.backend.Put(table, msg.Data)
	case MessageDeleteFeed:
		var feed models.Feed
		if err := json.Unmarshal(msg.Data, &feed); err != nil {
			return fmt.Errorf("%w: malformed feed: %v", shared.ErrInvalidInput, err)
		}
		return w.backend.DeleteFeed(feed)
	case MessageDestroy:
		return w.backend.Destroy()
	default:
		return fmt.Errorf("%w: unknown message type %q", shared.ErrInvalidInput, msg.Type)
	}
}
