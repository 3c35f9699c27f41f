// Package audit records operationally significant delivery events in an
// append-only log.
//
// The engine writes retry exhaustion, repeated permanent channel failures
// and preference changes; each event carries a severity and optional
// metadata. Writes are batched on a background goroutine so audit never
// blocks dispatch; a full buffer degrades to a synchronous write instead
// of dropping the event.
//
// The Reader serves the operator-only query endpoint. The log is never
// pruned.
package audit
