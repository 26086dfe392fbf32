package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podplay/internal/shared"
	"github.com/desertthunder/podplay/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/podplay-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	st := r.openStore(ctx)
	defer st.Close()

	sink := ui.NewSink(0)
	ctrl := r.newController(sink, nil)
	defer ctrl.Close()

	model := ui.NewModel(ctx, ctrl, st, sink)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
