package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/metrics"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/player"
	"github.com/desertthunder/podplay/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router registers handlers and applies middleware.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Player is the subset of [player.Controller] the command endpoints drive.
type Player interface {
	Play(req models.PlaybackRequest) error
	Pause()
	Resume()
	Stop()
	Seek(position float64)
	SetRate(rate float64)
	SetVolume(volume float64)
	SetMute(muted bool)
	Status() player.Status
}

// Store is the subset of the model store the model endpoints use.
type Store interface {
	Query(ctx context.Context) (*models.Model, error)
	Set(table models.Table, data any) error
	DeleteFeed(feed models.Feed) error
}

// Options configures a [Server].
type Options struct {
	Addr              string
	Player            Player
	Store             Store
	Events            *Broadcaster
	Metrics           *metrics.Metrics
	Logger            *log.Logger
	QueryTimeout      time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Server is the HTTP port of the UI-state owner: commands in, events out over server-sent events.
type Server struct {
	router *BasicRouter
	events *Broadcaster
	logger *log.Logger
	addr   string
}

// New wires every route and middleware.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "server")

	events := opts.Events
	if events == nil {
		events = NewBroadcaster(0)
	}

	router := NewBasicRouter()
	router.Use(Logging(logger), metrics.RequestMiddleware(opts.Metrics))
	if opts.RequestsPerSecond > 0 {
		router.Use(RateLimit(opts.RequestsPerSecond, opts.Burst))
	}

	if opts.Player != nil {
		router.Handler(NewPlayerHandler(opts.Player))
	}
	if opts.Store != nil {
		router.Handler(NewModelHandler(opts.Store, opts.QueryTimeout))
	}
	router.Handler(events)
	router.Handle(http.MethodGet, "/metrics", opts.Metrics.Handler(nil))

	return &Server{router: router, events: events, logger: logger, addr: opts.Addr}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("server error: %w", err)
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	s.events.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return <-errs
}
