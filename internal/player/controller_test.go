package player_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/player"
	tu "github.com/desertthunder/podplay/internal/testing"
)

type harness struct {
	engine *tu.FakeEngine
	sink   *tu.RecordingSink
	clock  *tu.FakeClock
	ctrl   *player.Controller
}

func setupController(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		engine: tu.NewFakeEngine(),
		sink:   &tu.RecordingSink{},
		clock:  tu.NewFakeClock(),
	}
	h.ctrl = player.New(h.engine, h.sink, player.Options{Clock: h.clock, Interval: time.Second})
	t.Cleanup(h.ctrl.Close)
	return h
}

// playing starts url and completes its load.
func (h *harness) playing(t *testing.T, url string) *tu.FakeSound {
	t.Helper()

	if err := h.ctrl.Play(models.PlaybackRequest{URL: url}); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	sound := h.engine.Last()
	sound.FinishLoad()

	if h.ctrl.State() != models.Playing {
		t.Fatalf("expected Playing, got %s", h.ctrl.State())
	}
	return sound
}

func TestPlay(t *testing.T) {
	t.Run("Load success without seek", func(t *testing.T) {
		h := setupController(t)

		err := h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3", Seek: models.Float(-1)})
		if err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if h.ctrl.State() != models.Loading {
			t.Errorf("expected Loading, got %s", h.ctrl.State())
		}
		if len(h.sink.Events()) != 0 {
			t.Errorf("expected no events while loading, got %v", h.sink.Kinds())
		}

		sound := h.engine.Last()
		sound.FinishLoad()

		events := h.sink.Events()
		if len(events) == 0 || events[0].Kind != models.SoundLoaded || !events[0].Loaded {
			t.Fatalf("expected soundLoaded(true) first, got %+v", events)
		}
		if h.ctrl.State() != models.Playing {
			t.Errorf("expected Playing, got %s", h.ctrl.State())
		}
		for _, call := range sound.Calls() {
			if len(call) > 4 && call[:5] == "seek:" {
				t.Errorf("expected no seek, got %s", call)
			}
		}
		if !slices.Contains(sound.Calls(), "play") {
			t.Error("expected the sound to be started")
		}
	})

	t.Run("Pending seek applied on load", func(t *testing.T) {
		h := setupController(t)

		h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3", Seek: models.Float(30)})
		sound := h.engine.Last()
		if slices.Contains(sound.Calls(), "seek:30") {
			t.Fatal("seek must wait for load")
		}

		sound.FinishLoad()
		calls := sound.Calls()
		seekAt := slices.Index(calls, "seek:30")
		playAt := slices.Index(calls, "play")
		if seekAt < 0 || seekAt > playAt {
			t.Errorf("expected seek before play, got %v", calls)
		}
		if sound.Position() != 30 {
			t.Errorf("expected position 30, got %v", sound.Position())
		}
	})

	t.Run("Rate volume and mute applied immediately", func(t *testing.T) {
		h := setupController(t)

		h.ctrl.Play(models.PlaybackRequest{
			URL:    "a.mp3",
			Rate:   models.Float(1.5),
			Volume: models.Float(0.25),
			Muted:  models.Bool(true),
		})

		want := []string{"rate:1.5", "volume:0.25", "mute:true"}
		if got := h.engine.Last().Calls(); !slices.Equal(got, want) {
			t.Errorf("expected %v before load, got %v", want, got)
		}
	})

	t.Run("Invalid request", func(t *testing.T) {
		h := setupController(t)

		if err := h.ctrl.Play(models.PlaybackRequest{}); err == nil {
			t.Error("expected error for missing url")
		}
		if h.engine.Last() != nil {
			t.Error("expected no engine resource for an invalid request")
		}
	})

	t.Run("Load error", func(t *testing.T) {
		h := setupController(t)

		h.ctrl.Play(models.PlaybackRequest{URL: "bad.mp3"})
		sound := h.engine.Last()
		sound.FailLoad(errors.New("decode failed"))

		if got := h.sink.Count(models.PlayError); got != 1 {
			t.Fatalf("expected exactly one playError, got %d", got)
		}
		if last, _ := h.sink.Last(); last.URL != "bad.mp3" {
			t.Errorf("expected playError(bad.mp3), got %+v", last)
		}
		if h.ctrl.State() != models.Idle {
			t.Errorf("expected Idle, got %s", h.ctrl.State())
		}
		if !sound.Unloaded() {
			t.Error("expected the failed sound to be unloaded")
		}
		if h.clock.Active() != 0 {
			t.Errorf("expected no progress timer, got %d", h.clock.Active())
		}

		sound.FailLoad(errors.New("again"))
		if got := h.sink.Count(models.PlayError); got != 1 {
			t.Errorf("expected a repeated error to be ignored, got %d playError", got)
		}
	})

	t.Run("Synchronous engine failure", func(t *testing.T) {
		h := setupController(t)
		h.engine.LoadErr = errors.New("engine closed")

		if err := h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3"}); err != nil {
			t.Fatalf("load failures are reported as events, got %v", err)
		}
		if h.sink.Count(models.PlayError) != 1 {
			t.Errorf("expected playError, got %v", h.sink.Kinds())
		}
		if h.ctrl.State() != models.Idle {
			t.Errorf("expected Idle, got %s", h.ctrl.State())
		}
	})

	t.Run("Failed load frees the controller", func(t *testing.T) {
		h := setupController(t)

		h.ctrl.Play(models.PlaybackRequest{URL: "bad.mp3"})
		h.engine.Last().FailLoad(errors.New("404"))

		h.playing(t, "good.mp3")
		if h.ctrl.URL() != "good.mp3" {
			t.Errorf("expected good.mp3 to be active, got %s", h.ctrl.URL())
		}
	})
}

func TestSingleActiveStream(t *testing.T) {
	t.Run("Play while Loading", func(t *testing.T) {
		h := setupController(t)

		h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3"})
		a := h.engine.Last()
		h.ctrl.Play(models.PlaybackRequest{URL: "b.mp3"})

		if !a.Unloaded() {
			t.Error("expected a.mp3 to be unloaded")
		}
		if h.engine.Peak() != 1 {
			t.Errorf("expected at most one live resource, peak was %d", h.engine.Peak())
		}

		a.FinishLoad()
		if h.sink.Count(models.SoundLoaded) != 0 {
			t.Error("load notification from a superseded sound must be ignored")
		}
		if h.ctrl.URL() != "b.mp3" || h.ctrl.State() != models.Loading {
			t.Errorf("expected b.mp3 Loading, got %s %s", h.ctrl.URL(), h.ctrl.State())
		}
	})

	t.Run("Play while Playing", func(t *testing.T) {
		h := setupController(t)

		a := h.playing(t, "a.mp3")
		b := h.playing(t, "b.mp3")
		c := h.playing(t, "c.mp3")

		if !a.Unloaded() || !b.Unloaded() || c.Unloaded() {
			t.Errorf("expected only c.mp3 alive, alive = %d", h.engine.Alive())
		}
		if h.engine.Peak() != 1 {
			t.Errorf("expected at most one live resource, peak was %d", h.engine.Peak())
		}

		a.End()
		if h.sink.Count(models.PlayEnd) != 0 {
			t.Error("end notification from a superseded sound must be ignored")
		}
	})

	t.Run("Superseded progress timer is cancelled", func(t *testing.T) {
		h := setupController(t)

		h.playing(t, "a.mp3")
		b := h.playing(t, "b.mp3")
		b.SetPosition(7)
		h.sink.Reset()

		h.clock.Advance(time.Second)

		events := h.sink.Events()
		if len(events) != 1 || events[0].Sample.Progress != 7 {
			t.Errorf("expected a single sample from b.mp3, got %+v", events)
		}
	})
}

func TestIdleNoOps(t *testing.T) {
	h := setupController(t)

	h.ctrl.Pause()
	h.ctrl.Resume()
	h.ctrl.Stop()
	h.ctrl.Seek(10)
	h.ctrl.SetRate(2)
	h.ctrl.SetVolume(0.5)
	h.ctrl.SetMute(true)

	if len(h.sink.Events()) != 0 {
		t.Errorf("expected no events, got %v", h.sink.Kinds())
	}
	if h.engine.Last() != nil {
		t.Error("expected no engine calls")
	}
	if h.ctrl.State() != models.Idle || h.ctrl.URL() != "" {
		t.Errorf("expected Idle with no url, got %s %q", h.ctrl.State(), h.ctrl.URL())
	}
}

func TestPauseResume(t *testing.T) {
	t.Run("Pause cancels progress", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")

		h.ctrl.Pause()
		if h.ctrl.State() != models.Paused {
			t.Fatalf("expected Paused, got %s", h.ctrl.State())
		}
		if sound.Playing() {
			t.Error("expected the sound to be paused")
		}

		h.sink.Reset()
		h.clock.Advance(5 * time.Second)
		if len(h.sink.Events()) != 0 {
			t.Errorf("expected no progress while paused, got %v", h.sink.Kinds())
		}
	})

	t.Run("Pause is idempotent", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")

		h.ctrl.Pause()
		h.ctrl.Pause()

		pauses := 0
		for _, call := range sound.Calls() {
			if call == "pause" {
				pauses++
			}
		}
		if pauses != 1 {
			t.Errorf("expected one engine pause, got %d", pauses)
		}
	})

	t.Run("Pause while Loading is a no-op", func(t *testing.T) {
		h := setupController(t)
		h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3"})

		h.ctrl.Pause()
		if h.ctrl.State() != models.Loading {
			t.Errorf("expected Loading, got %s", h.ctrl.State())
		}
		if slices.Contains(h.engine.Last().Calls(), "pause") {
			t.Error("expected no engine pause while loading")
		}
	})

	t.Run("Resume restarts progress", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")
		h.ctrl.Pause()
		h.sink.Reset()

		sound.SetPosition(12)
		h.ctrl.Resume()
		if h.ctrl.State() != models.Playing {
			t.Fatalf("expected Playing, got %s", h.ctrl.State())
		}
		if h.sink.Count(models.UpdateProgress) != 1 {
			t.Errorf("expected an immediate sample on resume, got %v", h.sink.Kinds())
		}

		h.clock.Advance(time.Second)
		if h.sink.Count(models.UpdateProgress) != 2 {
			t.Errorf("expected the loop to tick after resume, got %v", h.sink.Kinds())
		}
	})
}

func TestStop(t *testing.T) {
	h := setupController(t)
	sound := h.playing(t, "a.mp3")
	sound.SetPosition(42)
	h.sink.Reset()

	h.ctrl.Stop()

	events := h.sink.Events()
	if len(events) != 1 || events[0].Kind != models.UpdateProgress || events[0].Sample.Progress != 42 {
		t.Fatalf("expected one final sample at 42, got %+v", events)
	}
	if !sound.Unloaded() {
		t.Error("expected the sound to be unloaded")
	}
	if h.ctrl.State() != models.Idle {
		t.Errorf("expected Idle, got %s", h.ctrl.State())
	}

	h.ctrl.Stop()
	h.clock.Advance(3 * time.Second)
	if len(h.sink.Events()) != 1 {
		t.Errorf("expected nothing after stop, got %v", h.sink.Kinds())
	}
}

func TestSeek(t *testing.T) {
	t.Run("Emits before next tick", func(t *testing.T) {
		h := setupController(t)
		h.playing(t, "a.mp3")
		h.sink.Reset()

		h.clock.Advance(500 * time.Millisecond)
		h.ctrl.Seek(5.0)

		events := h.sink.Events()
		if len(events) != 1 || events[0].Kind != models.UpdateProgress {
			t.Fatalf("expected one updateProgress before the tick, got %+v", events)
		}
		if events[0].Sample.Progress != 5.0 {
			t.Errorf("expected position 5.0, got %v", events[0].Sample.Progress)
		}
	})

	t.Run("While Loading updates pending seek", func(t *testing.T) {
		h := setupController(t)
		h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3", Seek: models.Float(10)})
		h.ctrl.Seek(20)

		if len(h.sink.Events()) != 0 {
			t.Errorf("expected no events while loading, got %v", h.sink.Kinds())
		}

		sound := h.engine.Last()
		sound.FinishLoad()
		if sound.Position() != 20 {
			t.Errorf("expected the latest seek to win, got %v", sound.Position())
		}
	})

	t.Run("Negative clamps to zero", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")

		h.ctrl.Seek(-3)
		if !slices.Contains(sound.Calls(), "seek:0") {
			t.Errorf("expected seek:0, got %v", sound.Calls())
		}
	})
}

func TestProgressLoop(t *testing.T) {
	t.Run("Samples every interval", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")

		if h.sink.Count(models.UpdateProgress) != 1 {
			t.Fatalf("expected a sample on entering Playing, got %v", h.sink.Kinds())
		}

		for i := 1; i <= 3; i++ {
			sound.SetPosition(float64(i))
			h.clock.Advance(time.Second)
		}

		if got := h.sink.Count(models.UpdateProgress); got != 4 {
			t.Errorf("expected 4 samples, got %d", got)
		}
		if last, _ := h.sink.Last(); last.Sample.Progress != 3 || last.Sample.Duration != 120 {
			t.Errorf("unexpected last sample %+v", last.Sample)
		}
	})

	t.Run("Stops when engine stops playing", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")

		sound.SetPlaying(false)
		sound.SetPosition(42)
		h.clock.Advance(time.Second)
		h.clock.Advance(time.Second)

		if got := h.sink.Count(models.UpdateProgress); got != 2 {
			t.Errorf("expected a final sample and no reschedule, got %d samples", got)
		}
		if last, _ := h.sink.Last(); last.Sample.Progress != 42 {
			t.Errorf("expected the final sample at 42, got %+v", last.Sample)
		}
		if h.clock.Active() != 0 {
			t.Errorf("expected no scheduled timer, got %d", h.clock.Active())
		}
	})

	t.Run("Tick after pause does not resurrect", func(t *testing.T) {
		h := setupController(t)
		h.playing(t, "a.mp3")

		h.ctrl.Pause()
		h.ctrl.Resume()
		h.sink.Reset()

		h.clock.Advance(time.Second)
		if got := h.sink.Count(models.UpdateProgress); got != 1 {
			t.Errorf("expected exactly one live loop, got %d samples", got)
		}
	})
}

func TestEnded(t *testing.T) {
	t.Run("Natural end", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")
		h.sink.Reset()

		sound.End()

		if h.sink.Count(models.PlayEnd) != 1 {
			t.Fatalf("expected playEnd, got %v", h.sink.Kinds())
		}
		if last, _ := h.sink.Last(); last.URL != "a.mp3" {
			t.Errorf("expected playEnd(a.mp3), got %+v", last)
		}
		if !sound.Unloaded() || h.ctrl.State() != models.Idle {
			t.Errorf("expected unloaded and Idle, got %s", h.ctrl.State())
		}
		if h.clock.Active() != 0 {
			t.Errorf("expected no progress timer, got %d", h.clock.Active())
		}
	})

	t.Run("Spurious end while loading", func(t *testing.T) {
		h := setupController(t)
		h.ctrl.Play(models.PlaybackRequest{URL: "a.mp3"})
		sound := h.engine.Last()

		sound.End()

		if h.sink.Count(models.PlayEnd) != 0 {
			t.Error("expected end during loading to be ignored")
		}
		if sound.Unloaded() || h.ctrl.State() != models.Loading {
			t.Errorf("expected the stream to stay Loading, got %s", h.ctrl.State())
		}

		sound.FinishLoad()
		sound.End()
		if h.sink.Count(models.PlayEnd) != 1 {
			t.Errorf("expected the real end to be reported, got %v", h.sink.Kinds())
		}
	})

	t.Run("End after reload into loading state", func(t *testing.T) {
		h := setupController(t)
		sound := h.playing(t, "a.mp3")

		sound.SetLoading(true)
		sound.End()
		if h.sink.Count(models.PlayEnd) != 0 {
			t.Error("expected end to be ignored while the engine reports loading")
		}
	})

	t.Run("Follow-up play", func(t *testing.T) {
		h := setupController(t)
		h.playing(t, "a.mp3").End()

		next := h.playing(t, "b.mp3")
		if next.Unloaded() || h.ctrl.URL() != "b.mp3" {
			t.Error("expected the next item to play after end")
		}
	})
}

func TestTransportForwarding(t *testing.T) {
	h := setupController(t)
	sound := h.playing(t, "a.mp3")

	h.ctrl.SetRate(2)
	h.ctrl.SetRate(0)
	h.ctrl.SetVolume(1.5)
	h.ctrl.SetMute(false)

	calls := sound.Calls()
	for _, want := range []string{"rate:2", "volume:1", "mute:false"} {
		if !slices.Contains(calls, want) {
			t.Errorf("expected %s in %v", want, calls)
		}
	}
	if slices.Contains(calls, "rate:0") {
		t.Error("expected a non-positive rate to be ignored")
	}
	if h.ctrl.State() != models.Playing {
		t.Errorf("expected no state change, got %s", h.ctrl.State())
	}
}

func TestStatus(t *testing.T) {
	h := setupController(t)

	if st := h.ctrl.Status(); st.State != models.Idle || st.URL != "" {
		t.Errorf("unexpected idle status %+v", st)
	}

	sound := h.playing(t, "a.mp3")
	sound.SetPosition(9)

	st := h.ctrl.Status()
	if st.State != models.Playing || st.URL != "a.mp3" || st.Progress != 9 || st.Duration != 120 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &tu.RecordingSink{}, &tu.RecordingSink{}
	var calls int
	sink := player.MultiSink{a, nil, b, player.SinkFunc(func(models.Event) { calls++ })}

	sink.Emit(models.PlayEndEvent("x"))

	if len(a.Events()) != 1 || len(b.Events()) != 1 || calls != 1 {
		t.Errorf("expected every sink to receive the event")
	}
}
