// Package channel defines the delivery channel contracts and the three
// interchangeable gateways: push, realtime socket and email.
//
// Every gateway implements the same Gateway interface and reports failures
// through the package sentinel errors. Classify maps any send error onto the
// three-way Outcome taxonomy (delivered, transient, permanent) the
// dispatcher acts on.
//
// The Selector turns a user's effective delivery preference into an ordered
// fallback chain, skipping channels whose resource (token, session,
// address) is missing. The Hub tracks open realtime sessions and fires
// reconnect hooks used for offline replay.
package channel
