package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/podplay/internal/player"
	"github.com/desertthunder/podplay/internal/shared"
	tu "github.com/desertthunder/podplay/internal/testing"
	"github.com/urfave/cli/v3"
)

// setupRunner returns a runner over a fresh database in a temp dir.
func setupRunner(t *testing.T, engine player.Engine) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "podplay.db")
	config.Store.QueryTimeoutMS = 2000

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Engine: engine})
	return runner, output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "podplay", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"podplay"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			engine := tu.NewFakeEngine()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Engine:     engine,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.audioEngine() != engine {
				t.Error("expected the injected engine to be used")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		var names []string
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		want := []string{"setup", "store", "play", "serve", "tui"}
		if strings.Join(names, ",") != strings.Join(want, ",") {
			t.Errorf("expected commands %v, got %v", want, names)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("database creates config and migrates", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := tu.MustGetwd(t)
		tu.MustChdir(t, tempDir)
		defer tu.MustChdir(t, originalDir)

		runner, output := setupRunner(t, nil)
		if err := run(t, runner, "setup", "database", "--config", "config.toml"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		tu.AssertFileExists(t, "config.toml")
		tu.AssertFileExists(t, "podplay.db")
		if !strings.Contains(output.String(), "schema version 1") {
			t.Errorf("expected schema version in output, got %q", output.String())
		}
	})

	t.Run("config refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, _ := setupRunner(t, nil)

		if err := run(t, runner, "setup", "config", "--output", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := run(t, runner, "setup", "config", "--output", path); err == nil {
			t.Error("expected an error for an existing config file")
		}
	})
}

func TestStoreCommands(t *testing.T) {
	t.Run("set, get and delete-feed", func(t *testing.T) {
		runner, output := setupRunner(t, nil)

		steps := [][]string{
			{"store", "set", "--data", `[{"url":"X","title":"Feed X"}]`, "feeds"},
			{"store", "set", "--data", `[{"url":"x1","feedUrl":"X"},{"url":"y1","feedUrl":"Y"}]`, "items"},
			{"store", "set", "--data", `{"rate":1.5}`, "setting"},
			{"store", "delete-feed", "--url", "X"},
		}
		for _, args := range steps {
			if err := run(t, runner, args...); err != nil {
				t.Fatalf("%v failed: %v", args, err)
			}
		}

		output.Reset()
		if err := run(t, runner, "store", "get", "--pretty=false"); err != nil {
			t.Fatalf("store get failed: %v", err)
		}

		want := `{"setting":{"rate":1.5},"feeds":[],"items":[{"url":"y1","feedUrl":"Y"}]}`
		if got := strings.TrimSpace(output.String()); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("set validates input", func(t *testing.T) {
		runner, _ := setupRunner(t, nil)

		tests := []struct {
			name string
			args []string
			want error
		}{
			{name: "missing table", args: []string{"store", "set", "--data", `{}`}, want: shared.ErrMissingArgument},
			{name: "unknown table", args: []string{"store", "set", "--data", `{}`, "episodes"}, want: shared.ErrInvalidArgument},
			{name: "invalid json", args: []string{"store", "set", "--data", `{`, "view"}, want: shared.ErrInvalidArgument},
			{name: "collection needs array", args: []string{"store", "set", "--data", `{"url":"X"}`, "feeds"}, want: shared.ErrInvalidArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := run(t, runner, tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("destroy requires confirmation", func(t *testing.T) {
		runner, output := setupRunner(t, nil)

		if err := run(t, runner, "store", "set", "--data", `[{"url":"X"}]`, "feeds"); err != nil {
			t.Fatalf("store set failed: %v", err)
		}
		if err := run(t, runner, "store", "destroy"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument error, got %v", err)
		}
		if err := run(t, runner, "store", "destroy", "--yes"); err != nil {
			t.Fatalf("store destroy failed: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "store", "get", "--pretty=false"); err != nil {
			t.Fatalf("store get failed: %v", err)
		}
		if got := strings.TrimSpace(output.String()); got != `{"feeds":[],"items":[]}` {
			t.Errorf("expected an empty model, got %s", got)
		}
	})

	t.Run("export", func(t *testing.T) {
		runner, _ := setupRunner(t, nil)
		dir := t.TempDir()

		if err := run(t, runner, "store", "set", "--data", `[{"url":"x1","feedUrl":"X","title":"First"}]`, "items"); err != nil {
			t.Fatalf("store set failed: %v", err)
		}

		csvPath := filepath.Join(dir, "out.csv")
		if err := run(t, runner, "store", "export", "--format", "csv", "--output", csvPath); err != nil {
			t.Fatalf("csv export failed: %v", err)
		}
		if content := tu.MustReadFile(t, csvPath); !strings.Contains(content, "First") {
			t.Errorf("expected item in csv, got %s", content)
		}

		mdDir := filepath.Join(dir, "md")
		if err := run(t, runner, "store", "export", "--format", "md", "--output", mdDir); err != nil {
			t.Fatalf("markdown export failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(mdDir, "README.md"))

		if err := run(t, runner, "store", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument for xml, got %v", err)
		}
	})
}

func TestPlay(t *testing.T) {
	t.Run("plays until the end", func(t *testing.T) {
		engine := tu.NewFakeEngine()
		runner, output := setupRunner(t, engine)

		errs := make(chan error, 1)
		go func() {
			errs <- run(t, runner, "play", "--seek", "5", "--volume", "0.5", "a.mp3")
		}()

		deadline := time.Now().Add(2 * time.Second)
		for engine.Last() == nil {
			if time.Now().After(deadline) {
				t.Fatal("sound was never loaded")
			}
			time.Sleep(time.Millisecond)
		}

		sound := engine.Last()
		sound.FinishLoad()
		sound.End()

		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("play failed: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("play did not return")
		}

		calls := sound.Calls()
		if calls[0] != "rate:1" || calls[1] != "volume:0.5" || calls[2] != "mute:false" || calls[3] != "seek:5" {
			t.Errorf("unexpected calls %v", calls)
		}
		if !strings.Contains(output.String(), "Finished a.mp3") {
			t.Errorf("expected finish message, got %q", output.String())
		}
	})

	t.Run("console stop finishes playback", func(t *testing.T) {
		engine := tu.NewFakeEngine()
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "podplay.db")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: config,
			Output: output,
			Input:  io.NopCloser(strings.NewReader("stop\n")),
			Engine: engine,
		})

		errs := make(chan error, 1)
		go func() {
			errs <- run(t, runner, "play", "--console", "a.mp3")
		}()

		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("play failed: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("play did not return after stop")
		}

		if sound := engine.Last(); sound == nil || !sound.Unloaded() {
			t.Errorf("expected the sound to be unloaded")
		}
		if !strings.Contains(output.String(), "Stopped a.mp3") {
			t.Errorf("expected stop message, got %q", output.String())
		}
	})

	t.Run("load error", func(t *testing.T) {
		engine := tu.NewFakeEngine()
		engine.LoadErr = errors.New("404")
		runner, _ := setupRunner(t, engine)

		if err := run(t, runner, "play", "missing.mp3"); !errors.Is(err, shared.ErrLoadFailed) {
			t.Errorf("expected load failure, got %v", err)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		runner, _ := setupRunner(t, tu.NewFakeEngine())

		if err := run(t, runner, "play"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})
}

type recordingPlayer struct {
	calls []string
}

func (p *recordingPlayer) record(call string) { p.calls = append(p.calls, call) }

func (p *recordingPlayer) Pause()              { p.record("pause") }
func (p *recordingPlayer) Resume()             { p.record("resume") }
func (p *recordingPlayer) Stop()               { p.record("stop") }
func (p *recordingPlayer) Seek(v float64)      { p.record(fmt.Sprint("seek:", v)) }
func (p *recordingPlayer) SetRate(v float64)   { p.record(fmt.Sprint("rate:", v)) }
func (p *recordingPlayer) SetVolume(v float64) { p.record(fmt.Sprint("volume:", v)) }

func (p *recordingPlayer) SetMute(muted bool) {
	if muted {
		p.record("mute")
		return
	}
	p.record("unmute")
}

func (p *recordingPlayer) Status() player.Status {
	return player.Status{URL: "a.mp3", Progress: 75, Duration: 3600}
}

func TestConsole(t *testing.T) {
	tests := []struct {
		line    string
		call    string
		wantErr error
	}{
		{line: "pause", call: "pause"},
		{line: "resume", call: "resume"},
		{line: "stop", call: "stop", wantErr: errStopped},
		{line: "seek 30", call: "seek:30"},
		{line: "  rate   1.5 ", call: "rate:1.5"},
		{line: "vol 0.25", call: "volume:0.25"},
		{line: "mute", call: "mute"},
		{line: "unmute", call: "unmute"},
		{line: "", call: ""},
		{line: "seek", wantErr: shared.ErrMissingArgument},
		{line: "seek ten", wantErr: shared.ErrInvalidArgument},
		{line: "rewind", wantErr: shared.ErrInvalidArgument},
		{line: "quit", wantErr: errQuit},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p := &recordingPlayer{}
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.dispatchConsole(p, tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.call == "" {
				if len(p.calls) != 0 {
					t.Errorf("expected no calls, got %v", p.calls)
				}
				return
			}
			if len(p.calls) != 1 || p.calls[0] != tt.call {
				t.Errorf("expected [%s], got %v", tt.call, p.calls)
			}
		})
	}

	t.Run("status", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.dispatchConsole(&recordingPlayer{}, "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if got := output.String(); got != "idle a.mp3 1:15 / 1:00:00\n" {
			t.Errorf("unexpected status line %q", got)
		}
	})
}
