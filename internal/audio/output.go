package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// output is where attached streamers are mixed. Lock guards every streamer it has been given.
type output interface {
	Init() error
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

// speakerOutput plays through the system audio device. The device is opened on first use.
type speakerOutput struct {
	rate   beep.SampleRate
	buffer time.Duration

	once sync.Once
	err  error
}

func (o *speakerOutput) Init() error {
	o.once.Do(func() {
		if err := speaker.Init(o.rate, o.rate.N(o.buffer)); err != nil {
			o.err = fmt.Errorf("failed to open audio device: %w", err)
		}
	})
	return o.err
}

func (o *speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (o *speakerOutput) Lock()                { speaker.Lock() }
func (o *speakerOutput) Unlock()              { speaker.Unlock() }
