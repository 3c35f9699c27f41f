// Package confirmation tracks per-channel delivery outcomes and read
// receipts.
//
// A Confirmation is keyed by (notification, channel): the first attempt on
// a channel creates it, later attempts overwrite the status fields. The
// Tracker is the write surface used by the dispatcher (Attempt, Delivered,
// Failed) and the client acknowledgment path (Read). Read receipts are
// idempotent and honor the user's EnableReadReceipts preference.
package confirmation
