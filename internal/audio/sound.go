package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/desertthunder/podplay/internal/player"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// sound is one stream. mu guards the fields; streamer state that the output reads is changed
// only while also holding the output lock.
type sound struct {
	engine   *Engine
	src      string
	handlers player.Handlers
	cancel   context.CancelFunc

	mu       sync.Mutex
	loading  bool
	unloaded bool
	attached bool
	finished bool

	rate   float64
	volume float64
	muted  bool

	file      source
	format    beep.Format
	decoder   beep.StreamSeekCloser
	resampler *beep.Resampler
	gain      *effects.Volume
	ctrl      *beep.Ctrl
}

func (s *sound) load(ctx context.Context) {
	file, err := s.engine.fetch(ctx, s.src)
	if err != nil {
		s.fail(err)
		return
	}

	decoder, format, err := decode(file)
	if err != nil {
		file.cleanup()
		s.fail(err)
		return
	}

	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		decoder.Close()
		file.cleanup()
		return
	}

	s.file = file
	s.format = format
	s.decoder = decoder
	s.resampler = beep.Resample(resampleQuality, format.SampleRate, s.engine.rate, decoder)
	s.gain = &effects.Volume{Streamer: s.resampler, Base: 2}
	s.ctrl = &beep.Ctrl{Streamer: s.gain, Paused: true}
	s.applyRate()
	s.applyGain()
	s.loading = false
	s.mu.Unlock()

	s.engine.logger.Debug("loaded", "src", s.src, "duration", format.SampleRate.D(decoder.Len()))
	if s.handlers.OnLoad != nil {
		s.handlers.OnLoad()
	}
}

func (s *sound) fail(err error) {
	s.mu.Lock()
	s.loading = false
	unloaded := s.unloaded
	s.mu.Unlock()

	if unloaded {
		return
	}
	if s.handlers.OnLoadError != nil {
		s.handlers.OnLoadError(err)
	}
}

// finish runs on the output goroutine with the output lock held, so the end notification is handed off.
func (s *sound) finish() {
	go func() {
		s.mu.Lock()
		if s.unloaded || s.finished {
			s.mu.Unlock()
			return
		}
		s.finished = true
		s.mu.Unlock()

		if s.handlers.OnEnd != nil {
			s.handlers.OnEnd()
		}
	}()
}

func (s *sound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading || s.unloaded || s.finished {
		return
	}

	if !s.attached {
		s.ctrl.Paused = false
		s.attached = true
		s.engine.out.Play(beep.Seq(s.ctrl, beep.Callback(s.finish)))
		return
	}

	s.engine.out.Lock()
	s.ctrl.Paused = false
	s.engine.out.Unlock()
}

func (s *sound) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil || s.unloaded {
		return
	}

	s.engine.out.Lock()
	s.ctrl.Paused = true
	s.engine.out.Unlock()
}

func (s *sound) Seek(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decoder == nil || s.unloaded {
		return
	}

	n := s.format.SampleRate.N(time.Duration(position * float64(time.Second)))
	n = min(max(n, 0), s.decoder.Len())

	s.engine.out.Lock()
	err := s.decoder.Seek(n)
	s.engine.out.Unlock()

	if err != nil {
		s.engine.logger.Warn("seek failed", "src", s.src, "position", position, "error", err)
	}
}

func (s *sound) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decoder == nil || s.unloaded {
		return 0
	}

	s.engine.out.Lock()
	p := s.decoder.Position()
	s.engine.out.Unlock()

	return s.format.SampleRate.D(p).Seconds()
}

func (s *sound) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decoder == nil || s.unloaded {
		return 0
	}
	return s.format.SampleRate.D(s.decoder.Len()).Seconds()
}

func (s *sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attached && !s.ctrl.Paused && !s.finished && !s.unloaded
}

func (s *sound) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *sound) Rate(rate float64) {
	if rate <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rate = rate
	s.applyRate()
}

func (s *sound) Volume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = min(max(volume, 0), 1)
	s.applyGain()
}

func (s *sound) Mute(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.muted = muted
	s.applyGain()
}

// applyRate sets the resampling ratio. Callers hold s.mu.
func (s *sound) applyRate() {
	if s.resampler == nil || s.unloaded {
		return
	}
	ratio := float64(s.format.SampleRate) / float64(s.engine.rate) * s.rate

	s.engine.out.Lock()
	s.resampler.SetRatio(ratio)
	s.engine.out.Unlock()
}

// applyGain maps the linear 0..1 volume onto the base-2 gain. Callers hold s.mu.
func (s *sound) applyGain() {
	if s.gain == nil || s.unloaded {
		return
	}

	s.engine.out.Lock()
	s.gain.Silent = s.muted || s.volume <= 0
	if !s.gain.Silent {
		s.gain.Volume = math.Log2(s.volume)
	}
	s.engine.out.Unlock()
}

func (s *sound) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return
	}
	s.unloaded = true
	s.cancel()

	if s.attached {
		s.engine.out.Lock()
		s.ctrl.Streamer = nil
		s.engine.out.Unlock()
	}

	if s.decoder != nil {
		if err := s.decoder.Close(); err != nil {
			s.engine.logger.Debug("failed to close decoder", "src", s.src, "error", err)
		}
	}
	s.file.cleanup()
}
