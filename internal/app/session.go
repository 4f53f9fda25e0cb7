// Package app wires the domain core to its adapters: a live capture
// Session for the observation phase and a Grader for the scoring phase.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/marklab/internal/adapters/capture"
	"github.com/okian/marklab/internal/adapters/storage"
	"github.com/okian/marklab/internal/config"
	"github.com/okian/marklab/internal/domain/assign"
	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/internal/domain/track"
	"github.com/okian/marklab/pkg/errs"
	"github.com/okian/marklab/pkg/logger"
	"github.com/okian/marklab/pkg/metrics"
)

// Session runs one observation trial: it generates the ground-truth
// assignment, persists it, and tracks marker visibility over the frame
// stream until the stream ends or the context is canceled.
type Session struct {
	mu sync.Mutex

	cfg     *config.Config
	gen     *assign.Generator
	source  capture.Source
	tracker *track.Tracker

	assignment model.Assignment
	lastTS     time.Time
	frames     int
	started    bool

	logger logger.Logger
}

// SessionOption applies a configuration option to the Session.
type SessionOption func(*Session)

// WithSessionLogger sets a custom logger for the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGenerator replaces the assignment generator, e.g. with a seeded
// one for reproducible trials.
func WithGenerator(g *assign.Generator) SessionOption {
	return func(s *Session) {
		if g != nil {
			s.gen = g
		}
	}
}

// WithSource injects a frame source, bypassing the config-driven one.
func WithSource(src capture.Source) SessionOption {
	return func(s *Session) {
		if src != nil {
			s.source = src
		}
	}
}

// NewSession constructs a Session from configuration.
func NewSession(cfg *config.Config, opts ...SessionOption) *Session {
	s := &Session{
		cfg: cfg,
		gen: assign.New(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start generates and persists the assignment, then opens the frame
// source. It must be called before Run.
func (s *Session) Start(ctx context.Context) error {
	const op = "app.Session.Start"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}

	ids := make([]model.MarkerID, s.cfg.MarkerCount)
	for i := range ids {
		ids[i] = model.MarkerID(i)
	}

	assignment, err := s.gen.Generate(ctx, ids, s.cfg.FlagProbability, s.cfg.FlagCap)
	if err != nil {
		return errs.Wrap(op, err)
	}
	s.assignment = assignment
	metrics.RecordAssignmentGenerated()
	metrics.UpdateFlaggedMarkers(assignment.FlaggedCount())

	if err := storage.WriteAssignment(s.cfg.AssignmentFile, assignment); err != nil {
		return errs.Wrap(op, err)
	}
	s.logger.Info(ctx, "assignment generated",
		logger.Int("markers", len(assignment)),
		logger.Int("flagged", assignment.FlaggedCount()),
		logger.String("file", s.cfg.AssignmentFile),
	)

	s.tracker = track.New(track.WithMarkers(ids))

	if s.source == nil {
		src, err := s.openSource(ids)
		if err != nil {
			return errs.Wrap(op, err)
		}
		s.source = src
	}

	s.started = true
	s.logger.Info(ctx, "session started",
		logger.String("source", s.cfg.Source),
	)
	return nil
}

// openSource builds the configured frame source. Called under s.mu.
func (s *Session) openSource(ids []model.MarkerID) (capture.Source, error) {
	switch s.cfg.Source {
	case config.SourceCamera:
		return capture.NewCameraSource(s.cfg.CameraIndex,
			capture.WithOverlay(s.assignment),
		)
	case config.SourceReplay:
		return capture.NewReplaySource(s.cfg.ReplayFile)
	case config.SourceSynthetic:
		return capture.NewSyntheticSource(ids,
			capture.WithFrameCount(s.cfg.SyntheticFrames),
			capture.WithFrameInterval(s.cfg.FrameInterval()),
		), nil
	default:
		return nil, errs.Kindf("app.Session.openSource", config.ErrInvalidConfig,
			"unknown source %q", s.cfg.Source)
	}
}

// Run pulls frames from the source and feeds the tracker until the
// stream ends or ctx is canceled. Frames arriving before Start returns
// an error.
func (s *Session) Run(ctx context.Context) error {
	const op = "app.Session.Run"

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errs.NewKind(op, ErrNotStarted)
	}
	source, tracker := s.source, s.tracker
	s.mu.Unlock()

	for {
		frame, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrStreamEnd) || errors.Is(err, context.Canceled) {
				s.logger.Info(ctx, "frame stream ended",
					logger.Int("frames", s.frameCount()),
				)
				return nil
			}
			metrics.RecordErrorByComponent("session", "frame_read")
			return errs.Wrap(op, err)
		}

		s.mu.Lock()
		if !s.lastTS.IsZero() {
			metrics.RecordFrameGap(float64(frame.TS.Sub(s.lastTS).Milliseconds()))
		}
		s.lastTS = frame.TS
		s.frames++
		s.mu.Unlock()

		tracker.OnFrame(frame.Visible, frame.TS)
	}
}

// Finish closes the source and the tracker, logging a per-marker
// visibility summary. Safe to call more than once.
func (s *Session) Finish(ctx context.Context) map[model.MarkerID][]model.Interval {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.logger.Warn(ctx, "closing frame source", logger.Error(err))
		}
	}

	final := s.lastTS
	if final.IsZero() {
		final = time.Now()
	}
	intervals := s.tracker.Close(final)

	for id, ivs := range intervals {
		var total time.Duration
		for _, iv := range ivs {
			total += iv.Duration()
		}
		s.logger.Info(ctx, "marker visibility",
			logger.Int("marker", int(id)),
			logger.Int("intervals", len(ivs)),
			logger.Duration("total", total),
		)
	}

	s.started = false
	s.logger.Info(ctx, "session finished",
		logger.Int("frames", s.frames),
	)
	return intervals
}

// Assignment returns the generated assignment. Empty before Start.
func (s *Session) Assignment() model.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignment.Clone()
}

func (s *Session) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// GetStats returns session statistics for monitoring.
func (s *Session) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"markerCount": s.cfg.MarkerCount,
		"source":      s.cfg.Source,
		"frames":      s.frames,
	}
	if s.assignment != nil {
		stats["flagged"] = s.assignment.FlaggedCount()
	}
	return stats
}
