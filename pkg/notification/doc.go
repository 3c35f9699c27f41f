// Package notification defines the core content model shared by every stage
// of the delivery pipeline.
//
// A Content value is produced by an upstream event (mention, reply, like,
// follow, moderation action, ...) and is immutable from that point on. The
// optional Payload is a tagged variant referencing the entity the event is
// about; exactly one arm is populated and Validate enforces the tag/arm
// agreement.
package notification
