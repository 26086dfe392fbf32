package player

// Handlers receives the asynchronous notifications for one sound.
//
// Engines must never invoke a handler synchronously from [Engine.Load] or from a [Sound] method.
type Handlers struct {
	OnLoad      func()
	OnLoadError func(error)
	OnEnd       func()
}

// Engine allocates sounds.
type Engine interface {
	// Load starts loading url and returns immediately. The returned sound reports Loading until
	// OnLoad or OnLoadError fires.
	Load(url string, h Handlers) (Sound, error)
}

// Sound is the handle for one loaded (or loading) stream. Positions and durations are in seconds.
type Sound interface {
	Play()
	Pause()
	Seek(position float64)
	Position() float64
	Duration() float64
	Playing() bool
	Loading() bool
	Rate(rate float64)
	Volume(volume float64)
	Mute(muted bool)
	// Unload releases the engine resource. Calling it again is a no-op.
	Unload()
}
