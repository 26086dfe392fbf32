// Package player implements the playback controller: a state machine that owns at most one active audio
// stream and reports its lifecycle to the UI-state owner.
//
// # States
//
//	Idle -> Loading -> Playing <-> Paused -> Idle
//	Loading -> Idle (load error, reported)
//	Playing -> Idle (natural end, reported)
//
// # Engine
//
// Audio is delegated to an [Engine]. Each [Engine.Load] returns a [Sound] handle; load, load error and end
// notifications arrive later through [Handlers]. The controller holds a single slot for the active stream and
// every handler first checks that the stream it was created for still occupies that slot, so notifications
// from an unloaded sound are ignored.
//
// # Events
//
// Events are delivered to a [Sink] while the controller lock is held. Sinks must return quickly and must not
// call back into the controller.
//
// # Progress
//
// While Playing, a progress sample is emitted on entry and then once per interval. Each tick reschedules the
// next only if the engine still reports playing, and pause, stop, end and unload invalidate ticks that are
// already scheduled.
package player
