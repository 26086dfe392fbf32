// Package server exposes the playback controller and the model store over HTTP, acting as a UI-state owner
// for browser or script clients.
//
// # Routes
//
//	POST /player/play            PlaybackRequest JSON
//	POST /player/pause|resume|stop
//	POST /player/seek|rate|volume {"value": number}
//	POST /player/mute             {"value": bool}
//	GET  /player/state
//	GET  /events                  server-sent events: soundLoaded, playError, playEnd, updateProgress
//	GET  /model                   the stored model, 504 when the store does not answer in time
//	POST /store/{table}           setting, view, feeds or items
//	POST /feeds/delete            Feed JSON, removes the feed and its items
//	GET  /metrics                 Prometheus metrics
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses [http.ServeMux]
// internally with method filtering. [Middleware] wraps handlers in reverse order (last added executes first).
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Events
//
// [Broadcaster] is the controller's event sink. It never blocks the controller; slow clients lose events.
package server
