package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/desertthunder/podplay/internal/formatter"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/player"
	"github.com/desertthunder/podplay/internal/shared"
	"github.com/urfave/cli/v3"
)

var (
	// errQuit ends the console loop.
	errQuit = errors.New("quit")
	// errStopped ends the console loop after playback was stopped.
	errStopped = errors.New("stopped")
)

// playbackMonitor logs controller events and reports when playback finished.
type playbackMonitor struct {
	r    *Runner
	url  string
	done chan models.Event
}

func newPlaybackMonitor(r *Runner, url string) *playbackMonitor {
	return &playbackMonitor{r: r, url: url, done: make(chan models.Event, 1)}
}

// Emit never blocks: only the first terminal event is kept.
func (m *playbackMonitor) Emit(event models.Event) {
	switch event.Kind {
	case models.SoundLoaded:
		m.r.logger.Info("loaded", "url", m.url)
	case models.UpdateProgress:
		m.r.logger.Debug("progress",
			"position", formatter.FormatDuration(event.Sample.Progress),
			"duration", formatter.FormatDuration(event.Sample.Duration))
	case models.PlayEnd, models.PlayError:
		select {
		case m.done <- event:
		default:
		}
	}
}

func (r *Runner) playbackRequest(cmd *cli.Command) (models.PlaybackRequest, error) {
	url := cmd.StringArg("url")
	if url == "" {
		return models.PlaybackRequest{}, fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}
	return models.PlaybackRequest{
		URL:    url,
		Seek:   models.Float(cmd.Float("seek")),
		Rate:   models.Float(cmd.Float("rate")),
		Volume: models.Float(cmd.Float("volume")),
		Muted:  models.Bool(cmd.Bool("muted")),
	}, nil
}

// Play plays one URL until it ends, fails, or the command is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	req, err := r.playbackRequest(cmd)
	if err != nil {
		return err
	}

	monitor := newPlaybackMonitor(r, req.URL)
	ctrl := r.newController(monitor, nil)
	defer ctrl.Close()

	if err := ctrl.Play(req); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consoleErr := make(chan error, 1)
	if cmd.Bool("console") {
		go func() {
			consoleErr <- r.runConsole(ctx, ctrl)
			cancel()
		}()
	}

	select {
	case event := <-monitor.done:
		if event.Kind == models.PlayError {
			return fmt.Errorf("%w: %s", shared.ErrLoadFailed, event.URL)
		}
		r.logger.Info("finished", "url", event.URL)
		return r.writePlain("✓ Finished %s\n", event.URL)
	case <-ctx.Done():
		ctrl.Stop()
		select {
		case err := <-consoleErr:
			switch {
			case errors.Is(err, errStopped):
				r.logger.Info("stopped", "url", req.URL)
				return r.writePlain("■ Stopped %s\n", req.URL)
			case err != nil && !errors.Is(err, errQuit):
				return err
			}
			return nil
		default:
			return ctx.Err()
		}
	}
}

// consoleCompleter lists the console commands for tab completion.
var consoleCompleter = readline.NewPrefixCompleter(
	readline.PcItem("pause"),
	readline.PcItem("resume"),
	readline.PcItem("stop"),
	readline.PcItem("seek"),
	readline.PcItem("rate"),
	readline.PcItem("vol"),
	readline.PcItem("mute"),
	readline.PcItem("unmute"),
	readline.PcItem("status"),
	readline.PcItem("quit"),
)

// runConsole reads commands until the user quits or ctx is done. ctx must be cancelled once it returns.
func (r *Runner) runConsole(ctx context.Context, ctrl *player.Controller) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "podplay> ",
		AutoComplete:    consoleCompleter,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           r.input,
		Stdout:          r.output,
	})
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}

	// Closing unblocks a pending Readline.
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return errQuit
		}
		if err != nil {
			return err
		}

		if err := r.dispatchConsole(ctrl, line); err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, errStopped) {
				return err
			}
			r.writePlain("%v\n", err)
		}
	}
}

// consolePlayer is the controller surface the console drives.
type consolePlayer interface {
	Pause()
	Resume()
	Stop()
	Seek(position float64)
	SetRate(rate float64)
	SetVolume(volume float64)
	SetMute(muted bool)
	Status() player.Status
}

// dispatchConsole runs one console line against the controller.
func (r *Runner) dispatchConsole(p consolePlayer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	number := func() (float64, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%w: %s needs a value", shared.ErrMissingArgument, fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", shared.ErrInvalidArgument, fields[1])
		}
		return v, nil
	}

	switch fields[0] {
	case "pause":
		p.Pause()
	case "resume", "play":
		p.Resume()
	case "stop":
		p.Stop()
		return errStopped
	case "seek":
		v, err := number()
		if err != nil {
			return err
		}
		p.Seek(v)
	case "rate":
		v, err := number()
		if err != nil {
			return err
		}
		p.SetRate(v)
	case "vol", "volume":
		v, err := number()
		if err != nil {
			return err
		}
		p.SetVolume(v)
	case "mute":
		p.SetMute(true)
	case "unmute":
		p.SetMute(false)
	case "status":
		st := p.Status()
		return r.writePlain("%s %s %s / %s\n", st.State, st.URL,
			formatter.FormatDuration(st.Progress), formatter.FormatDuration(st.Duration))
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("%w: unknown command %q", shared.ErrInvalidArgument, fields[0])
	}
	return nil
}
