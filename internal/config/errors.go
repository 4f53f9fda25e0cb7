package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidConfig marks a configuration that loaded but fails a
	// cross-field constraint, e.g. a flag cap above the marker count.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig marks a failure to read or decode a config source.
	ErrLoadConfig = errors.New("load config failed")
)
