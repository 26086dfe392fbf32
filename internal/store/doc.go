// Package store implements the persistent model store: an asynchronous façade that talks to a background
// worker over a message bus.
//
// # Message Bus
//
// [NewBus] returns a pair of connected [Endpoint]s. Each direction is an unbounded FIFO mailbox, so
// [Endpoint.Post] never blocks. Messages are JSON-encoded on post and decoded on receive; nothing is shared
// between the two sides except bytes.
//
// # Worker
//
// [Worker] owns the [Backend] exclusively. It opens the backend once, then handles messages strictly in
// receipt order. When the backend cannot be opened every message is dropped and get queries are never
// answered.
//
// # Façade
//
// [Store] turns method calls into messages. [Store.Get] registers a one-shot callback under a fresh
// correlation id and returns immediately; the callback runs when a response with that id arrives. Responses
// are matched by id only, so they may arrive in any order. [Store.Set], [Store.DeleteFeed] and
// [Store.Destroy] are fire-and-forget.
//
// [Store.Get] never times out. [Store.Query] is the blocking variant that gives up when its context expires.
package store
