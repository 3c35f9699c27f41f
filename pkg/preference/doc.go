// Package preference stores per-user delivery settings and resolves them
// into an allow, defer or drop decision for each notification.
//
// Preferences cover per-kind enablement, a preferred delivery method (auto
// or a single channel), quiet hours, rolling frequency caps, confirmation
// toggles and history retention. Users who never saved preferences get
// Default values; every field has a safe default so partial saves behave
// predictably.
//
// The Resolver re-reads preferences on every call, including retries, so a
// change made while a notification waits in the queue takes effect before
// the next attempt. Quiet hours and frequency caps defer rather than drop;
// only an explicit opt-out (kind disabled, method disabled) drops. Urgent
// kinds bypass quiet hours but still honor opt-outs.
//
// Two Store implementations ship with the package: MemoryStore for tests
// and development, PGStore for production.
package preference
