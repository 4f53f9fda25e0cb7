package capture

import "errors"

// Sentinel kinds for capture errors.
var (
	ErrStreamEnd       = errors.New("detection stream ended")
	ErrNoCameraSupport = errors.New("built without camera support")
)
