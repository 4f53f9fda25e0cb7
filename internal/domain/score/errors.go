package score

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrIncompleteResponse = errors.New("incomplete response")
)
