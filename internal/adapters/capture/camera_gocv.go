//go:build gocv

package capture

import (
	"context"
	"image"
	"image/color"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
)

// Overlay drawing parameters.
const (
	outlineThickness = 3
	labelScale       = 0.7
	labelThickness   = 2
	quitKey          = 'q'
)

// Overlay colors, keyed by assignment state.
var (
	colorFlagged    = color.RGBA{R: 255}
	colorNormal     = color.RGBA{G: 255}
	colorUnassigned = color.RGBA{R: 255, G: 255, B: 255}
)

// CameraSource pulls frames from a webcam and runs ArUco detection on
// each one. With the overlay enabled it renders the frame with detected
// markers outlined in their assignment color and ends the stream when
// the operator presses q.
type CameraSource struct {
	cfg      cameraConfig
	webcam   *gocv.VideoCapture
	detector gocv.ArucoDetector
	window   *gocv.Window
	img      gocv.Mat
	gray     gocv.Mat
}

// NewCameraSource opens the webcam at deviceID with an ArUco detector
// for the original dictionary, matching the markers the experiment
// prints.
func NewCameraSource(deviceID int, opts ...CameraOption) (Source, error) {
	const op = "capture.newCamera"

	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	s := &CameraSource{
		cfg:      newCameraConfig(opts...),
		webcam:   webcam,
		detector: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(gocv.ArucoDictArucoOriginal), gocv.NewArucoDetectorParameters()),
		img:      gocv.NewMat(),
		gray:     gocv.NewMat(),
	}
	if s.cfg.window {
		s.window = gocv.NewWindow(s.cfg.windowName)
	}
	return s, nil
}

// Next captures one frame, detects markers, and renders the overlay.
func (s *CameraSource) Next(ctx context.Context) (model.Frame, error) {
	const op = "capture.cameraNext"

	if err := ctx.Err(); err != nil {
		return model.Frame{}, errs.Wrap(op, err)
	}

	if ok := s.webcam.Read(&s.img); !ok || s.img.Empty() {
		return model.Frame{}, errs.NewKind(op, ErrStreamEnd)
	}
	ts := time.Now()

	gocv.CvtColor(s.img, &s.gray, gocv.ColorBGRToGray)
	corners, ids, _ := s.detector.DetectMarkers(s.gray)

	visible := make([]model.MarkerID, 0, len(ids))
	for i, id := range ids {
		visible = append(visible, model.MarkerID(id))
		if s.window != nil {
			s.drawMarker(corners[i], model.MarkerID(id))
		}
	}

	if s.window != nil {
		s.window.IMShow(s.img)
		if key := s.window.WaitKey(1); key == quitKey {
			return model.Frame{}, errs.NewKind(op, ErrStreamEnd)
		}
	}

	return model.Frame{Visible: visible, TS: ts}, nil
}

// drawMarker outlines one detected marker and labels it with its ID.
func (s *CameraSource) drawMarker(corners []gocv.Point2f, id model.MarkerID) {
	c := colorUnassigned
	switch s.cfg.assignment[id] {
	case model.StateFlagged:
		c = colorFlagged
	case model.StateNormal:
		if _, ok := s.cfg.assignment[id]; ok {
			c = colorNormal
		}
	}

	pts := make([]image.Point, len(corners))
	for i, p := range corners {
		pts[i] = image.Pt(int(p.X), int(p.Y))
	}
	for i := range pts {
		gocv.Line(&s.img, pts[i], pts[(i+1)%len(pts)], c, outlineThickness)
	}
	if len(pts) > 0 {
		gocv.PutText(&s.img, "ID "+strconv.Itoa(int(id)), pts[0], gocv.FontHersheySimplex, labelScale, c, labelThickness)
	}
}

// Close releases the webcam, detector, and window.
func (s *CameraSource) Close() error {
	const op = "capture.cameraClose"

	_ = s.img.Close()
	_ = s.gray.Close()
	_ = s.detector.Close()
	if s.window != nil {
		_ = s.window.Close()
	}
	return errs.Wrap(op, s.webcam.Close())
}
