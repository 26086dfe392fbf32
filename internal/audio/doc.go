// Package audio is the media engine adapter. It loads mp3 and wav streams with github.com/faiface/beep
// and plays them through the system speaker.
//
// Each sound is a chain of beep streamers:
//
//	decoder -> Resampler (sample rate conversion and playback rate) -> effects.Volume -> Ctrl (pause)
//
// Loading happens on a goroutine; remote URLs are downloaded to a temporary file first so the decoder can
// seek. Load, load error and end notifications are always delivered on their own goroutine, never while
// the speaker lock or the sound's lock is held.
package audio
