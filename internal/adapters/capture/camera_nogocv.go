//go:build !gocv

package capture

import "github.com/okian/marklab/pkg/errs"

// NewCameraSource reports that this binary was built without the gocv
// build tag. Camera capture needs OpenCV installed; replay and
// synthetic sources work everywhere.
func NewCameraSource(deviceID int, opts ...CameraOption) (Source, error) {
	_ = newCameraConfig(opts...)
	return nil, errs.NewKind("capture.newCamera", ErrNoCameraSupport)
}
