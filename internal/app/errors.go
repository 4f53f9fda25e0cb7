package app

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotStarted          = errors.New("not started")
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
