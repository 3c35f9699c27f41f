// Package queue is the durable retry queue for failed notification
// dispatches.
//
// An Item is created when the first dispatch attempt fails and deleted on
// delivery, drop, or exhaustion; history keeps the permanent record. Items
// are claimed under a lease (visibility timeout) so concurrent scheduler
// processes never double-deliver. The retry delay is fixed per item, not
// exponential; deferrals (quiet hours, frequency caps) reschedule without
// consuming a retry, so retryCount never exceeds maxRetries.
//
// The Scheduler polls for due items and hands each to a Redispatcher,
// which re-runs the full preference-resolve and dispatch pipeline.
package queue
