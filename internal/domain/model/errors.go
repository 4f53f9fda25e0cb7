package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownState = errors.New("unknown marker state")
)
