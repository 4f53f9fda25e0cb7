package assign

import "errors"

// Sentinel kinds for generation errors.
var (
	ErrInvalidConfig = errors.New("invalid generation parameters")
)
