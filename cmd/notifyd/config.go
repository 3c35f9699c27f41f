package main

import "time"

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"notifyd"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Retry policy applied to every queued notification.
	MaxRetries int           `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"NOTIFY_RETRY_DELAY" envDefault:"1m"`

	// Delivery worker pool and scheduler tuning.
	Workers      int           `env:"NOTIFY_WORKERS" envDefault:"8"`
	PollInterval time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"5s"`

	// History pruning ceiling; per-user retention narrows it at read time.
	PruneInterval time.Duration `env:"HISTORY_PRUNE_INTERVAL" envDefault:"1h"`
	PruneAfter    time.Duration `env:"HISTORY_PRUNE_AFTER" envDefault:"720h"`
}
