package recorder

import "errors"

// Sentinel kinds for recorder errors.
var (
	ErrClosed = errors.New("recorder closed")
)
