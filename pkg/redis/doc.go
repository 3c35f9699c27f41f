// Package redis provides the redis connection used by the shared
// frequency-cap windows, with retrying connect and a readiness probe.
package redis
