package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the config struct.
	ErrParsingConfig = errors.New("config: failed to parse environment")

	// ErrConfigNotLoaded is returned when a config vanished from the cache
	// after parsing. Should not happen.
	ErrConfigNotLoaded = errors.New("config: not loaded")

	// ErrNilPointer is returned when Load receives a nil pointer.
	ErrNilPointer = errors.New("config: nil pointer")
)
