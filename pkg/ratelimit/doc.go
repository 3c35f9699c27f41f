// Package ratelimit implements the sliding window counters behind per-user
// notification frequency caps.
//
// A Window tracks individual event timestamps inside a trailing span, so
// counts stay exact at the window edges. Check never consumes a slot; the
// dispatcher records an event only after a delivery is confirmed, which
// keeps deferred and failed attempts from eating into the cap.
//
// Two stores are provided: MemoryStore for single-process use and tests,
// and RedisStore when several workers share the same caps.
package ratelimit
