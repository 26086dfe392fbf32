package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/audio"
	"github.com/desertthunder/podplay/internal/metrics"
	"github.com/desertthunder/podplay/internal/player"
	"github.com/desertthunder/podplay/internal/shared"
	"github.com/desertthunder/podplay/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.ReadCloser
	metrics    *metrics.Metrics
	engine     player.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.ReadCloser
	Metrics    *metrics.Metrics
	// Engine replaces the speaker-backed audio engine.
	Engine player.Engine
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		metrics:    opts.Metrics,
		engine:     opts.Engine,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, storeCommand, playCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openStore starts a model store over the configured database.
func (r *Runner) openStore(ctx context.Context) *store.Store {
	return store.Open(ctx, r.config.Database.Path, store.Options{
		Logger:  r.logger,
		Metrics: r.metrics,
		Backend: store.BackendOptions{
			MaxOpenConns: r.config.Database.MaxOpenConns,
			MaxIdleConns: r.config.Database.MaxIdleConns,
		},
	})
}

// audioEngine returns the injected engine or one that plays through the speaker.
func (r *Runner) audioEngine() player.Engine {
	if r.engine != nil {
		return r.engine
	}
	return audio.NewEngine(audio.Options{
		SampleRate: r.config.Player.SampleRate,
		Buffer:     r.config.Player.Buffer(),
		Client:     r.httpClient,
		Logger:     r.logger,
	})
}

// newController builds a playback controller emitting to sink.
func (r *Runner) newController(sink player.Sink, clock player.Clock) *player.Controller {
	return player.New(r.audioEngine(), sink, player.Options{
		Clock:    clock,
		Interval: r.config.Player.ProgressInterval(),
		Logger:   r.logger,
		Metrics:  r.metrics,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
