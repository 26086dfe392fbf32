package testing

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/player"
)

// FakeClock is a manual [player.Clock]. Timers fire synchronously inside [FakeClock.Advance].
type FakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*FakeTimer
}

// FakeTimer is a timer scheduled on a [FakeClock].
type FakeTimer struct {
	clock   *FakeClock
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) player.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &FakeTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *FakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing due timers in deadline order. Timers scheduled by a
// firing callback run too if they fall within the window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

func (c *FakeClock) nextDue(target time.Duration) *FakeTimer {
	pending := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			pending = append(pending, t)
		}
	}
	c.timers = pending

	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at == c.timers[j].at {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at < c.timers[j].at
	})

	if len(c.timers) == 0 || c.timers[0].at > target {
		return nil
	}
	return c.timers[0]
}

// Active reports how many timers are scheduled and neither stopped nor fired.
func (c *FakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// FakeEngine is a scriptable [player.Engine]. Tests drive the load, error and end notifications through
// the returned [FakeSound]s.
type FakeEngine struct {
	mu       sync.Mutex
	sounds   []*FakeSound
	peak     int
	LoadErr  error
	Duration float64
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{Duration: 120}
}

func (e *FakeEngine) Load(url string, h player.Handlers) (player.Sound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.LoadErr != nil {
		return nil, e.LoadErr
	}

	s := &FakeSound{URL: url, handlers: h, loading: true, duration: e.Duration}
	e.sounds = append(e.sounds, s)
	e.peak = max(e.peak, e.alive())
	return s, nil
}

func (e *FakeEngine) alive() int {
	n := 0
	for _, s := range e.sounds {
		if !s.Unloaded() {
			n++
		}
	}
	return n
}

// Alive reports how many sounds have not been unloaded.
func (e *FakeEngine) Alive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alive()
}

// Peak reports the most sounds that were ever alive at once.
func (e *FakeEngine) Peak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peak
}

// Sounds returns every sound loaded so far, oldest first.
func (e *FakeEngine) Sounds() []*FakeSound {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.sounds)
}

// Last returns the most recently loaded sound, or nil.
func (e *FakeEngine) Last() *FakeSound {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sounds) == 0 {
		return nil
	}
	return e.sounds[len(e.sounds)-1]
}

// FakeSound records every call made by the controller.
type FakeSound struct {
	URL string

	mu       sync.Mutex
	handlers player.Handlers
	calls    []string
	position float64
	duration float64
	playing  bool
	loading  bool
	unloaded int
}

func (s *FakeSound) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *FakeSound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("play")
	if !s.loading && s.unloaded == 0 {
		s.playing = true
	}
}

func (s *FakeSound) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("pause")
	s.playing = false
}

func (s *FakeSound) Seek(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("seek:%g", position)
	s.position = position
}

func (s *FakeSound) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *FakeSound) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return 0
	}
	return s.duration
}

func (s *FakeSound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *FakeSound) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *FakeSound) Rate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("rate:%g", rate)
}

func (s *FakeSound) Volume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("volume:%g", volume)
}

func (s *FakeSound) Mute(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("mute:%t", muted)
}

func (s *FakeSound) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded == 0 {
		s.record("unload")
	}
	s.unloaded++
	s.playing = false
}

// Calls returns the recorded method calls, e.g. "play", "seek:5", "unload".
func (s *FakeSound) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Unloaded reports whether Unload has been called.
func (s *FakeSound) Unloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloaded > 0
}

// SetPosition moves the playhead as if audio had played.
func (s *FakeSound) SetPosition(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
}

// SetPlaying overrides the playing flag the engine reports.
func (s *FakeSound) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
}

// SetLoading puts the sound back into the loading sub-state.
func (s *FakeSound) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// FinishLoad marks the sound loaded and fires OnLoad.
func (s *FakeSound) FinishLoad() {
	s.mu.Lock()
	s.loading = false
	h := s.handlers
	s.mu.Unlock()

	if h.OnLoad != nil {
		h.OnLoad()
	}
}

// FailLoad fires OnLoadError with err.
func (s *FakeSound) FailLoad(err error) {
	s.mu.Lock()
	s.loading = false
	h := s.handlers
	s.mu.Unlock()

	if h.OnLoadError != nil {
		h.OnLoadError(err)
	}
}

// End stops playback and fires OnEnd.
func (s *FakeSound) End() {
	s.mu.Lock()
	s.playing = false
	h := s.handlers
	s.mu.Unlock()

	if h.OnEnd != nil {
		h.OnEnd()
	}
}

// RecordingSink is a [player.Sink] that keeps every event.
type RecordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *RecordingSink) Emit(event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *RecordingSink) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Kinds returns the kinds of the recorded events in order.
func (r *RecordingSink) Kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]models.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count reports how many events of kind were recorded.
func (r *RecordingSink) Count(kind models.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent event and whether there was one.
func (r *RecordingSink) Last() (models.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return models.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Reset forgets every recorded event.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
