package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/podplay/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP control server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	st := r.openStore(ctx)
	defer st.Close()

	events := server.NewBroadcaster(0)
	ctrl := r.newController(events, nil)
	defer ctrl.Close()

	srv := server.New(server.Options{
		Addr:              cfg.Addr(),
		Player:            ctrl,
		Store:             st,
		Events:            events,
		Metrics:           r.metrics,
		Logger:            r.logger,
		QueryTimeout:      r.config.Store.QueryTimeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})

	r.writePlain("Serving on http://%s\n", cfg.Addr())
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
