// Package models defines the domain entities shared by the playback controller, the model store and its storage backend.
//
// The package contains two categories of types:
//
// 1. Persisted aggregate: the state that survives restarts
//   - [Model] : setting and view singletons plus the feeds and items collections
//   - [Feed] : a subscribed podcast feed, keyed by URL
//   - [Item] : a single episode, keyed by URL and looked up by its feed URL
//
// 2. Playback values: transient data exchanged with the UI-state owner
//   - [PlaybackRequest] : a play command
//   - [ProgressSample] : position and duration snapshot of the active stream
//   - [Event] : outbound notifications (soundLoaded, playError, playEnd, updateProgress)
//   - [State] : lifecycle state of the active stream
package models
