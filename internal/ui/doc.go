// Package ui implements a terminal podcast player using bubbletea's Elm architecture.
//
// The (view) [Model] lists every stored episode grouped by feed and drives a playback controller:
//   - enter plays the selected episode, resuming from its stored progress
//   - space pauses and resumes, s stops
//   - ←/→ seek 15 seconds, +/- change volume, m toggles mute, [ and ] change rate
//
// Controller events reach the program through a [Sink], a buffered queue drained by a re-armed tea.Cmd,
// so the controller never blocks on rendering. When an episode ends it is marked played, persisted, and
// the next episode in the list starts.
//
// Volume, rate and mute are saved to the store's setting document.
package ui
