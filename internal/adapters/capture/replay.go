package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
)

// replayLine is one JSONL record of a recorded detection stream.
type replayLine struct {
	TS      time.Time `json:"ts"`
	Visible []int     `json:"visible"`
}

// ReplaySource replays a recorded detection stream from a JSONL file,
// one frame per line. With pacing enabled it sleeps the recorded gap
// between consecutive frames; without it frames come back as fast as
// the caller pulls them.
type ReplaySource struct {
	file    *os.File
	scanner *bufio.Scanner
	paced   bool
	lastTS  time.Time
}

// ReplayOption applies a configuration option to the ReplaySource.
type ReplayOption func(*ReplaySource)

// WithPacing makes Next sleep the recorded inter-frame gap, so a replay
// takes roughly as long as the original session.
func WithPacing() ReplayOption {
	return func(s *ReplaySource) {
		s.paced = true
	}
}

// NewReplaySource opens a recorded detection stream.
func NewReplaySource(path string, opts ...ReplayOption) (*ReplaySource, error) {
	const op = "capture.newReplay"

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.WrapKind(op, ErrStreamEnd, err)
		}
		return nil, errs.Wrap(op, err)
	}

	s := &ReplaySource{
		file:    f,
		scanner: bufio.NewScanner(f),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Next returns the next recorded frame.
func (s *ReplaySource) Next(ctx context.Context) (model.Frame, error) {
	const op = "capture.replayNext"

	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return model.Frame{}, errs.Wrap(op, err)
			}
			return model.Frame{}, errs.NewKind(op, ErrStreamEnd)
		}

		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue // blank line between frames is tolerated
		}

		var line replayLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return model.Frame{}, errs.Wrap(op, err)
		}

		if s.paced && !s.lastTS.IsZero() {
			if gap := line.TS.Sub(s.lastTS); gap > 0 {
				timer := time.NewTimer(gap)
				select {
				case <-ctx.Done():
					timer.Stop()
					return model.Frame{}, errs.Wrap(op, ctx.Err())
				case <-timer.C:
				}
			}
		}
		s.lastTS = line.TS

		visible := make([]model.MarkerID, 0, len(line.Visible))
		for _, id := range line.Visible {
			visible = append(visible, model.MarkerID(id))
		}
		return model.Frame{Visible: visible, TS: line.TS}, nil
	}
}

// Close closes the underlying file.
func (s *ReplaySource) Close() error {
	return errs.Wrap("capture.replayClose", s.file.Close())
}

// WriteReplayLog serializes a detection stream as JSONL, the format
// NewReplaySource reads. Used by the simulate harness and by tests.
func WriteReplayLog(path string, frames []model.Frame) error {
	const op = "capture.writeReplayLog"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errs.Wrap(op, err)
	}
	defer f.Close() //nolint:errcheck // checked below

	enc := json.NewEncoder(f)
	for _, frame := range frames {
		visible := make([]int, 0, len(frame.Visible))
		for _, id := range frame.Visible {
			visible = append(visible, int(id))
		}
		if err := enc.Encode(replayLine{TS: frame.TS, Visible: visible}); err != nil {
			return errs.Wrap(op, err)
		}
	}
	return errs.Wrap(op, f.Close())
}
