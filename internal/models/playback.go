package models

import (
	"fmt"
	"strings"
)

// PlaybackRequest is a play command issued by the UI-state owner.
//
// Nil fields are absent. A negative Seek is the "no seek" sentinel.
type PlaybackRequest struct {
	URL    string   `json:"url"`
	Seek   *float64 `json:"seek,omitempty"`
	Rate   *float64 `json:"rate,omitempty"`
	Volume *float64 `json:"vol,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
}

// Validate checks the request before it is accepted.
func (r PlaybackRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if r.Volume != nil && (*r.Volume < 0 || *r.Volume > 1) {
		return fmt.Errorf("volume must be within 0..1, got %v", *r.Volume)
	}
	if r.Rate != nil && *r.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %v", *r.Rate)
	}
	return nil
}

// SeekTo returns the requested start position, or false when no seek applies.
func (r PlaybackRequest) SeekTo() (float64, bool) {
	if r.Seek == nil || *r.Seek < 0 {
		return 0, false
	}
	return *r.Seek, true
}

// ProgressSample is a position/duration snapshot in seconds. It is never persisted.
type ProgressSample struct {
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration"`
}

// State is the lifecycle state of the active stream.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return ""
	}
}

// EventKind enumerates the outbound notifications sent to the UI-state owner.
type EventKind int

const (
	SoundLoaded EventKind = iota
	PlayError
	PlayEnd
	UpdateProgress
)

func (k EventKind) String() string {
	switch k {
	case SoundLoaded:
		return "soundLoaded"
	case PlayError:
		return "playError"
	case PlayEnd:
		return "playEnd"
	case UpdateProgress:
		return "updateProgress"
	default:
		return ""
	}
}

// Event is a single notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind   EventKind      `json:"-"`
	Loaded bool           `json:"loaded,omitempty"`
	URL    string         `json:"url,omitempty"`
	Sample ProgressSample `json:"sample"`
}

// SoundLoadedEvent is the constructor for [SoundLoaded]
func SoundLoadedEvent(loaded bool) Event {
	return Event{Kind: SoundLoaded, Loaded: loaded}
}

// PlayErrorEvent is the constructor for [PlayError]
func PlayErrorEvent(url string) Event {
	return Event{Kind: PlayError, URL: url}
}

// PlayEndEvent is the constructor for [PlayEnd]
func PlayEndEvent(url string) Event {
	return Event{Kind: PlayEnd, URL: url}
}

// UpdateProgressEvent is the constructor for [UpdateProgress]
func UpdateProgressEvent(sample ProgressSample) Event {
	return Event{Kind: UpdateProgress, Sample: sample}
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for optional request fields.
func Bool(v bool) *bool { return &v }
