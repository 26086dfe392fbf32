package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/player"
	"github.com/desertthunder/podplay/internal/shared"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

const (
	DefaultSampleRate = 44100
	DefaultBuffer     = 100 * time.Millisecond

	resampleQuality = 4
)

// Options configures an [Engine].
type Options struct {
	SampleRate int
	Buffer     time.Duration
	// Client fetches http(s) sources. Defaults to [http.DefaultClient].
	Client *http.Client
	// TempDir holds downloaded sources while they play. Defaults to [os.TempDir].
	TempDir string
	Logger  *log.Logger
}

// Engine implements [player.Engine] on top of beep.
type Engine struct {
	out     output
	rate    beep.SampleRate
	client  *http.Client
	tempDir string
	logger  *log.Logger
}

// NewEngine creates an engine that plays through the system speaker.
func NewEngine(opts Options) *Engine {
	opts = withDefaults(opts)
	out := &speakerOutput{rate: beep.SampleRate(opts.SampleRate), buffer: opts.Buffer}
	return newEngine(out, opts)
}

func newEngine(out output, opts Options) *Engine {
	opts = withDefaults(opts)
	return &Engine{
		out:     out,
		rate:    beep.SampleRate(opts.SampleRate),
		client:  opts.Client,
		tempDir: opts.TempDir,
		logger:  shared.WithLogger(opts.Logger, "component", "audio"),
	}
}

func withDefaults(opts Options) Options {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return opts
}

// Load opens the output device if needed and starts loading src in the background.
func (e *Engine) Load(src string, h player.Handlers) (player.Sound, error) {
	if err := e.out.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLoadFailed, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &sound{
		engine:   e,
		src:      src,
		handlers: h,
		cancel:   cancel,
		loading:  true,
		rate:     1,
		volume:   1,
	}

	go s.load(ctx)
	return s, nil
}

// source is a local file ready for decoding.
type source struct {
	path string
	ext  string
	temp bool
}

func (src source) cleanup() {
	if src.temp {
		os.Remove(src.path)
	}
}

// fetch resolves src to a local file, downloading http(s) URLs into the temp dir.
func (e *Engine) fetch(ctx context.Context, src string) (source, error) {
	u, err := url.Parse(src)
	if err != nil {
		return source{}, fmt.Errorf("invalid source %q: %w", src, err)
	}
	ext := strings.ToLower(path.Ext(u.Path))

	switch u.Scheme {
	case "http", "https":
		return e.download(ctx, u.String(), ext)
	case "file":
		return source{path: u.Path, ext: ext}, nil
	case "":
		return source{path: src, ext: strings.ToLower(path.Ext(src))}, nil
	default:
		return source{}, fmt.Errorf("%w: unsupported scheme %q", shared.ErrLoadFailed, u.Scheme)
	}
}

func (e *Engine) download(ctx context.Context, rawURL, ext string) (source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return source{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return source{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return source{}, fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode)
	}

	f, err := os.CreateTemp(e.tempDir, "podplay-*"+ext)
	if err != nil {
		return source{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return source{}, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}

	e.logger.Debug("downloaded", "url", rawURL, "path", f.Name())
	return source{path: f.Name(), ext: ext, temp: true}, nil
}

// decode opens the file at src and picks a decoder by extension. Unknown extensions are tried as mp3.
func decode(src source) (beep.StreamSeekCloser, beep.Format, error) {
	switch src.ext {
	case ".ogg", ".oga", ".flac", ".m4a", ".aac", ".opus":
		return nil, beep.Format{}, fmt.Errorf("%w: %s", shared.ErrUnsupportedFormat, src.ext)
	}

	f, err := os.Open(src.path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open %s: %w", src.path, err)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	if src.ext == ".wav" {
		stream, format, err = wav.Decode(f)
	} else {
		stream, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", src.path, err)
	}

	return stream, format, nil
}
