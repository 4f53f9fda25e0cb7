package capture

import "github.com/okian/marklab/internal/domain/model"

// cameraConfig holds the settings shared by the real camera source and
// its no-support stub, so both build variants expose the same options.
type cameraConfig struct {
	assignment model.Assignment
	window     bool
	windowName string
}

// CameraOption applies a configuration option to the camera source.
type CameraOption func(*cameraConfig)

// WithOverlay enables the live preview window with marker outlines
// colored by their assigned state: flagged red, normal green, markers
// outside the assignment white.
func WithOverlay(assignment model.Assignment) CameraOption {
	return func(c *cameraConfig) {
		c.assignment = assignment
		c.window = true
	}
}

// WithWindowName overrides the preview window title.
func WithWindowName(name string) CameraOption {
	return func(c *cameraConfig) {
		if name != "" {
			c.windowName = name
		}
	}
}

func newCameraConfig(opts ...CameraOption) cameraConfig {
	c := cameraConfig{
		windowName: "marklab",
	}

	// Apply all options
	for _, opt := range opts {
		opt(&c)
	}

	return c
}
