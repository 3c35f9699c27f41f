package redis

import "errors"

var (
	ErrFailedToParseConnString = errors.New("redis: failed to parse connection string")
	ErrNotReady                = errors.New("redis: not ready within the connect timeout")
	ErrHealthcheckFailed       = errors.New("redis: healthcheck failed")
)
