package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrMissingFile   = errors.New("reference file missing")
	ErrMalformedFile = errors.New("malformed file")
)
