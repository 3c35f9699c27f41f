package dispatch

import "errors"

var (
	// ErrNoChannels is returned when a dispatch has no reachable channel.
	// The notification is queued and retried; the user may reconnect or
	// register a token before retries run out.
	ErrNoChannels = errors.New("dispatch: no reachable channel")

	// ErrAllChannelsFailed is returned when every channel in the fallback
	// chain failed.
	ErrAllChannelsFailed = errors.New("dispatch: all channels failed")

	// ErrTrackerRequired is returned when a dispatcher is built without a
	// confirmation tracker.
	ErrTrackerRequired = errors.New("dispatch: confirmation tracker is required")

	// ErrResolverRequired is returned when an engine is built without a
	// preference resolver.
	ErrResolverRequired = errors.New("dispatch: preference resolver is required")

	// ErrDispatcherRequired is returned when an engine is built without a
	// dispatcher.
	ErrDispatcherRequired = errors.New("dispatch: dispatcher is required")

	// ErrQueueRequired is returned when an engine is built without a queue
	// store.
	ErrQueueRequired = errors.New("dispatch: queue store is required")

	// ErrHistoryRequired is returned when an engine is built without a
	// history store.
	ErrHistoryRequired = errors.New("dispatch: history store is required")

	// ErrEngineClosed is returned by Notify after shutdown.
	ErrEngineClosed = errors.New("dispatch: engine closed")
)
