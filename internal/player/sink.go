package player

import "github.com/desertthunder/podplay/internal/models"

// Sink receives controller events.
type Sink interface {
	Emit(event models.Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(models.Event)

func (f SinkFunc) Emit(event models.Event) { f(event) }

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(event models.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(event)
		}
	}
}

type discardSink struct{}

func (discardSink) Emit(models.Event) {}
