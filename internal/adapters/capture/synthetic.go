package capture

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
)

// Default synthetic stream parameters.
const (
	defaultSyntheticFrames   = 300
	defaultFrameInterval     = 33 * time.Millisecond
	defaultAppearProbability = 0.1
	defaultVanishProbability = 0.15
)

// SyntheticSource fabricates a detection stream without hardware: each
// registered marker flips between absent and visible on a seeded
// pseudo-random schedule, so appearances persist across frames the way
// a physical marker in front of a camera would.
type SyntheticSource struct {
	ids       []model.MarkerID
	visible   map[model.MarkerID]bool
	rng       *rand.Rand
	frames    int
	produced  int
	interval  time.Duration
	appear    float64
	vanish    float64
	clock     time.Time
	realSleep bool
}

// SyntheticOption applies a configuration option to the SyntheticSource.
type SyntheticOption func(*SyntheticSource)

// WithSyntheticSeed pins the appearance schedule.
func WithSyntheticSeed(seed int64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic stream, not cryptography
	}
}

// WithFrameCount bounds the stream length.
func WithFrameCount(n int) SyntheticOption {
	return func(s *SyntheticSource) {
		if n > 0 {
			s.frames = n
		}
	}
}

// WithFrameInterval sets the timestamp step between frames.
func WithFrameInterval(d time.Duration) SyntheticOption {
	return func(s *SyntheticSource) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStartTime pins the first frame's timestamp; the default is Now.
func WithStartTime(t time.Time) SyntheticOption {
	return func(s *SyntheticSource) {
		s.clock = t
	}
}

// WithRealtime makes Next actually sleep one frame interval per frame,
// approximating a camera's pace. Off by default so tests and the
// simulate harness run at full speed.
func WithRealtime() SyntheticOption {
	return func(s *SyntheticSource) {
		s.realSleep = true
	}
}

// NewSyntheticSource creates a synthetic stream over the given markers.
func NewSyntheticSource(ids []model.MarkerID, opts ...SyntheticOption) *SyntheticSource {
	s := &SyntheticSource{
		ids:      ids,
		visible:  make(map[model.MarkerID]bool, len(ids)),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // synthetic stream, not cryptography
		frames:   defaultSyntheticFrames,
		interval: defaultFrameInterval,
		appear:   defaultAppearProbability,
		vanish:   defaultVanishProbability,
		clock:    time.Now(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Next fabricates the next frame.
func (s *SyntheticSource) Next(ctx context.Context) (model.Frame, error) {
	const op = "capture.syntheticNext"

	if s.produced >= s.frames {
		return model.Frame{}, errs.NewKind(op, ErrStreamEnd)
	}

	if s.realSleep {
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.Frame{}, errs.Wrap(op, ctx.Err())
		case <-timer.C:
		}
	}

	// Flip each marker's state with its transition probability, then
	// report whichever markers are visible this frame.
	var out []model.MarkerID
	for _, id := range s.ids {
		if s.visible[id] {
			if s.rng.Float64() < s.vanish {
				s.visible[id] = false
			}
		} else if s.rng.Float64() < s.appear {
			s.visible[id] = true
		}
		if s.visible[id] {
			out = append(out, id)
		}
	}

	ts := s.clock
	s.clock = s.clock.Add(s.interval)
	s.produced++

	return model.Frame{Visible: out, TS: ts}, nil
}

// Close is a no-op; a synthetic stream holds no resources.
func (s *SyntheticSource) Close() error {
	return nil
}
