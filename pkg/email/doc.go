// Package email provides the outbound email transport used by the email
// delivery channel.
//
// Two Sender implementations are available: a Postmark-backed sender for
// production and a filesystem DevSender for local development. Provider
// failures are wrapped in ErrFailedToSend (retryable) or
// ErrInactiveRecipient (permanent) so the dispatcher can classify them.
package email
