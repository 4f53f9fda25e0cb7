//go:build !gocv

package capture_test

import (
	"errors"
	"testing"

	capture "github.com/okian/marklab/internal/adapters/capture"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCameraSourceStub(t *testing.T) {
	Convey("Given a build without camera support", t, func() {
		Convey("When opening a camera source", func() {
			_, err := capture.NewCameraSource(0, capture.WithWindowName("test"))

			Convey("Then it reports the missing support", func() {
				So(errors.Is(err, capture.ErrNoCameraSupport), ShouldBeTrue)
			})
		})
	})
}
