// Package config loads typed configuration from environment variables.
//
// Each component declares its own config struct with env tags and calls
// Load; the result is cached per type, so components stay decoupled while
// the process parses the environment only once. A .env file is honored in
// development.
//
//	type QueueConfig struct {
//		PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
//		MaxRetries   int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
//	}
//
//	var cfg QueueConfig
//	config.MustLoad(&cfg)
package config
