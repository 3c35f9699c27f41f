// Package dispatch drives notification delivery end to end.
//
// The Engine is the single entry point for producing event sources: Notify
// writes the history entry, resolves the user's preferences and hands the
// notification to the Dispatcher on a bounded worker pool, never blocking
// the caller on the outcome. The Dispatcher walks the channel fallback
// chain, records a confirmation per attempt and stops at the first
// delivery; a fully failed walk lands the notification in the retry queue.
//
// The Engine also implements the queue's Redispatcher contract, so retries
// re-enter the identical resolve-select-dispatch pipeline with the user's
// current preferences.
package dispatch
