package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podplay/internal/metrics"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/shared"
)

// DefaultInterval is the progress polling period.
const DefaultInterval = time.Second

// Options configures a [Controller].
type Options struct {
	Clock    Clock
	Interval time.Duration
	Logger   *log.Logger
	Metrics  *metrics.Metrics
}

// Status is a point-in-time view of the controller.
type Status struct {
	State    models.State `json:"-"`
	URL      string       `json:"url,omitempty"`
	Progress float64      `json:"progress"`
	Duration float64      `json:"duration"`
}

// activeStream is the single slot owned by the controller.
type activeStream struct {
	id    string
	url   string
	sound Sound
	state models.State

	timer Timer
	// ticks invalidates scheduled progress callbacks; a tick only runs if it still carries the current value.
	ticks uint64

	seek    float64
	hasSeek bool
}

// Controller serializes playback commands against a single active stream.
type Controller struct {
	mu       sync.Mutex
	engine   Engine
	sink     Sink
	clock    Clock
	interval time.Duration
	logger   *log.Logger
	metrics  *metrics.Metrics

	active *activeStream
}

// New creates an idle controller.
func New(engine Engine, sink Sink, opts Options) *Controller {
	if sink == nil {
		sink = discardSink{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Controller{
		engine:   engine,
		sink:     sink,
		clock:    clock,
		interval: interval,
		logger:   shared.WithLogger(logger, "component", "player"),
		metrics:  opts.Metrics,
	}
}

// Play replaces any active stream with a new one for req.URL.
//
// The previous sound is unloaded before the new one is allocated. Rate, volume and mute are applied
// right away; the seek position is applied once the sound has loaded. Load failures are reported as
// playError events, not returned.
func (c *Controller) Play(req models.PlaybackRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.release()

	s := &activeStream{id: shared.GenerateID(), url: req.URL, state: models.Loading}
	if pos, ok := req.SeekTo(); ok {
		s.seek, s.hasSeek = pos, true
	}

	sound, err := c.engine.Load(req.URL, Handlers{
		OnLoad:      func() { c.loaded(s) },
		OnLoadError: func(err error) { c.loadFailed(s, err) },
		OnEnd:       func() { c.ended(s) },
	})
	if err != nil {
		c.logger.Warn("load failed", "stream", s.id, "url", req.URL, "error", err)
		c.metrics.IncLoadErrors()
		c.emit(models.PlayErrorEvent(req.URL))
		return nil
	}

	s.sound = sound
	c.active = s
	c.metrics.SetActiveStreams(1)

	if req.Rate != nil {
		sound.Rate(*req.Rate)
	}
	if req.Volume != nil {
		sound.Volume(*req.Volume)
	}
	if req.Muted != nil {
		sound.Mute(*req.Muted)
	}

	c.logger.Debug("loading", "stream", s.id, "url", req.URL)
	return nil
}

// Pause pauses a playing stream. It is a no-op unless the controller is Playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil || s.state != models.Playing {
		return
	}

	s.sound.Pause()
	c.cancelProgress(s)
	s.state = models.Paused
}

// Resume continues a paused stream. It is a no-op unless the controller is Paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil || s.state != models.Paused {
		return
	}

	s.sound.Play()
	s.state = models.Playing
	c.startProgress(s)
}

// Stop emits a final progress sample and unloads the active stream. It is a no-op when Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil {
		return
	}

	c.cancelProgress(s)
	c.emit(models.UpdateProgressEvent(sample(s)))
	c.release()
}

// Seek moves the active stream to position and emits a progress sample right away.
// While Loading the position replaces the pending seek and nothing is emitted.
func (c *Controller) Seek(position float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil {
		return
	}
	position = max(position, 0)

	if s.state == models.Loading {
		s.seek, s.hasSeek = position, true
		return
	}

	s.sound.Seek(position)
	c.emit(models.UpdateProgressEvent(sample(s)))
}

// SetRate forwards a playback rate to the active stream.
func (c *Controller) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.withSound(func(sound Sound) { sound.Rate(rate) })
}

// SetVolume forwards a volume in 0..1 to the active stream.
func (c *Controller) SetVolume(volume float64) {
	volume = min(max(volume, 0), 1)
	c.withSound(func(sound Sound) { sound.Volume(volume) })
}

// SetMute forwards the mute flag to the active stream.
func (c *Controller) SetMute(muted bool) {
	c.withSound(func(sound Sound) { sound.Mute(muted) })
}

// State returns the lifecycle state.
func (c *Controller) State() models.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return models.Idle
	}
	return c.active.state
}

// URL returns the source of the active stream, or "" when Idle.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ""
	}
	return c.active.url
}

// Status returns the state together with a fresh progress sample.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil {
		return Status{State: models.Idle}
	}

	smp := sample(s)
	return Status{State: s.state, URL: s.url, Progress: smp.Progress, Duration: smp.Duration}
}

// Close unloads the active stream without emitting anything.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
}

func (c *Controller) withSound(fn func(Sound)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	fn(c.active.sound)
}

func (c *Controller) loaded(s *activeStream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s || s.state != models.Loading {
		return
	}

	if s.hasSeek {
		s.sound.Seek(s.seek)
		s.hasSeek = false
	}
	s.sound.Play()

	c.metrics.IncLoaded()
	c.emit(models.SoundLoadedEvent(true))

	s.state = models.Playing
	c.startProgress(s)
	c.logger.Debug("playing", "stream", s.id, "url", s.url)
}

func (c *Controller) loadFailed(s *activeStream, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s {
		return
	}

	c.logger.Warn("load failed", "stream", s.id, "url", s.url, "error", err)
	c.metrics.IncLoadErrors()
	c.release()
	c.emit(models.PlayErrorEvent(s.url))
}

func (c *Controller) ended(s *activeStream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s {
		return
	}
	if s.sound.Loading() {
		c.logger.Debug("ignoring end while loading", "stream", s.id)
		return
	}

	c.cancelProgress(s)
	c.metrics.IncEnded()
	c.emit(models.PlayEndEvent(s.url))
	c.release()
}

// release unloads and clears the active stream. Callers hold c.mu.
func (c *Controller) release() {
	s := c.active
	if s == nil {
		return
	}

	c.cancelProgress(s)
	s.sound.Unload()
	s.state = models.Idle
	c.active = nil
	c.metrics.SetActiveStreams(0)
	c.logger.Debug("unloaded", "stream", s.id)
}

func (c *Controller) startProgress(s *activeStream) {
	c.cancelProgress(s)
	c.emit(models.UpdateProgressEvent(sample(s)))
	c.schedule(s, s.ticks)
}

func (c *Controller) schedule(s *activeStream, gen uint64) {
	s.timer = c.clock.AfterFunc(c.interval, func() { c.tick(s, gen) })
}

func (c *Controller) tick(s *activeStream, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s || s.ticks != gen || s.state != models.Playing {
		return
	}

	c.emit(models.UpdateProgressEvent(sample(s)))
	if !s.sound.Playing() {
		s.timer = nil
		return
	}
	c.schedule(s, gen)
}

func (c *Controller) cancelProgress(s *activeStream) {
	s.ticks++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (c *Controller) emit(event models.Event) {
	c.sink.Emit(event)
}

func sample(s *activeStream) models.ProgressSample {
	return models.ProgressSample{Progress: s.sound.Position(), Duration: s.sound.Duration()}
}
