// Package history keeps the durable log of every notification and replays
// missed ones on reconnect.
//
// An Entry is written when a notification enters the pipeline, regardless
// of outcome, and finalized at terminal state. The ReplayEngine runs off
// the socket hub's reconnect hook: it fetches the user's undelivered,
// never-replayed entries within their retention window and pushes them
// through the realtime socket only. Each entry is replayed at most once.
//
// The Pruner enforces the service-wide retention ceiling; per-user
// retention narrows what replay fetches.
package history
